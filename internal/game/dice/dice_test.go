package dice_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in                     string
		count, sides, modifier int
	}{
		{"2", 0, 0, 2},
		{"d6", 1, 6, 0},
		{"2d6", 2, 6, 0},
		{"1d3+1", 1, 3, 1},
		{"4d8-2", 4, 8, -2},
		{" 1D4 + 2 ", 1, 4, 2},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.modifier, e.Modifier)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "d", "d1", "0d6", "abc", "2d6+x", "+3"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected %q to be rejected", in)
	}
}

func TestRoll_FlatAmount(t *testing.T) {
	r := dice.Roll(dice.Fixed(7), dice.NewSequenceSource(3))
	assert.Empty(t, r.Dice)
	assert.Equal(t, 7, r.Total())
}

func TestRollResult_TotalNeverNegative(t *testing.T) {
	r := dice.RollResult{Expression: "1d2-5", Dice: []int{1}, Modifier: -5}
	assert.Equal(t, 0, r.Total())
}

func TestRoll_Property_InRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 6).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(0, 10).Draw(rt, "mod")
		seed := rapid.Uint64().Draw(rt, "seed")

		e := dice.MustParse(fmt.Sprintf("%dd%d+%d", count, sides, mod))
		r := dice.Roll(e, dice.NewSeededSource(seed))
		require.Len(rt, r.Dice, count)
		assert.GreaterOrEqual(rt, r.Total(), count+mod)
		assert.LessOrEqual(rt, r.Total(), count*sides+mod)
	})
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestSequenceSource_WrapsAndReduces(t *testing.T) {
	s := dice.NewSequenceSource(1, 5)
	assert.Equal(t, 1, s.Intn(3))
	assert.Equal(t, 2, s.Intn(3))
	assert.Equal(t, 1, s.Intn(3))
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestSources_PanicOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(0) })
	assert.Panics(t, func() { dice.NewSequenceSource().Intn(0) })
}

func TestRoller_Percent_Bounds(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewSeededSource(7), zap.NewNop())
	for i := 0; i < 100; i++ {
		assert.False(t, r.Percent(0))
		assert.True(t, r.Percent(100))
	}
}

func TestRoller_Percent_UsesSource(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewSequenceSource(3999, 4000), nil)
	assert.True(t, r.Percent(40))
	assert.False(t, r.Percent(40))
}

func TestRoller_Pick(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewSequenceSource(4), nil)
	assert.Equal(t, -1, r.Pick(0))
	assert.Equal(t, 1, r.Pick(3))
}
