package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

func TestMelee_AttackLandsAndCompletes(t *testing.T) {
	env, clk := newEnv(t)
	enemy := melee(t, env, 10, 0)
	p := engaged(t, env, enemy)
	log := watch(enemy)

	require.True(t, enemy.BeginAttack())
	assert.Equal(t, combat.StateBeforeAttack, enemy.State())
	assert.Equal(t, 1, log.count(combat.EventAttackStarted))
	assert.False(t, enemy.BeginAttack(), "one attack at a time")

	clk.Advance(300 * time.Millisecond)
	assert.Equal(t, combat.StateAttacking, enemy.State())
	assert.Nil(t, p.Counter().Victim())

	clk.Advance(1400 * time.Millisecond)
	assert.Equal(t, 98, p.Health())
	assert.Equal(t, combat.StateRecovering, p.State())

	clk.Advance(600 * time.Millisecond)
	assert.Equal(t, combat.StateIdle, enemy.State())
	require.Len(t, log.finished(), 1)
	assert.False(t, log.finished()[0].Cancelled)
	assert.False(t, enemy.IsAttacking())
}

func TestMelee_BeginAttackNeedsLivingTarget(t *testing.T) {
	env, _ := newEnv(t)
	enemy := melee(t, env, 10, 0)
	assert.False(t, enemy.BeginAttack())

	p := engaged(t, env, enemy)
	p.Kill()
	assert.False(t, enemy.BeginAttack())
	assert.Equal(t, combat.StateIdle, enemy.State())
}

func TestMelee_DamageDuringWindUpCancels(t *testing.T) {
	env, clk := newEnv(t)
	enemy := melee(t, env, 10, 0)
	p := engaged(t, env, enemy)
	log := watch(enemy)

	require.True(t, enemy.BeginAttack())
	clk.Advance(100 * time.Millisecond)
	enemy.ReceiveDamage(combat.Hit{Amount: 1, Source: p, Kind: combat.DamageStrike})

	assert.Equal(t, combat.StateRecovering, enemy.State())
	require.Len(t, log.finished(), 1)
	assert.True(t, log.finished()[0].Cancelled)

	clk.Advance(3 * time.Second)
	assert.Equal(t, 100, p.Health())
	assert.Equal(t, combat.StateIdle, enemy.State())
}

func TestEnemy_RepositionPassesThroughPreAction(t *testing.T) {
	env, clk := newEnv(t)
	enemy := melee(t, env, 10, 0)

	enemy.Reposition(combat.Vec{X: 50, Y: 10})
	assert.Equal(t, combat.StatePreAction, enemy.State())
	assert.Equal(t, combat.Vec{X: 50, Y: 10}, enemy.Position())
	assert.True(t, enemy.CanPerformAttack())

	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, combat.StateIdle, enemy.State())
}

func TestEnemy_StunBlocksAttacksUntilRecovery(t *testing.T) {
	env, clk := newEnv(t)
	enemy := melee(t, env, 10, 0)
	engaged(t, env, enemy)

	enemy.Stun(0)
	assert.Equal(t, combat.StateStunned, enemy.State())
	assert.False(t, enemy.CanPerformAttack())
	assert.False(t, enemy.BeginAttack())

	clk.Advance(3 * time.Second)
	assert.Equal(t, combat.StateIdle, enemy.State())
	assert.True(t, enemy.CanPerformAttack())
}

func TestEnemy_DeathDuringAttackSettlesObligationOnce(t *testing.T) {
	env, clk := newEnv(t)
	enemy := melee(t, env, 10, 0)
	engaged(t, env, enemy)
	log := watch(enemy)

	require.True(t, enemy.BeginAttack())
	clk.Advance(500 * time.Millisecond)
	enemy.Kill()

	assert.True(t, enemy.IsDead())
	require.Len(t, log.finished(), 1)
	assert.True(t, log.finished()[0].Cancelled)
	require.Equal(t, 1, log.count(combat.EventDied))

	var died combat.Event
	for _, e := range log.events {
		if e.Kind == combat.EventDied {
			died = e
		}
	}
	assert.Equal(t, combat.DamageExecute, died.Damage)

	clk.Advance(10 * time.Second)
	assert.Len(t, log.finished(), 1)
	assert.Equal(t, 0, enemy.ReceiveDamage(combat.Hit{Amount: 3, Kind: combat.DamageStrike}))
}

func TestEnemy_ResetRestoresPoolCondition(t *testing.T) {
	env, clk := newEnv(t)
	enemy := melee(t, env, 10, 0)
	engaged(t, env, enemy)
	log := watch(enemy)

	require.True(t, enemy.BeginAttack())
	enemy.Kill()
	before := len(log.events)

	enemy.Reset()
	assert.Equal(t, combat.StateIdle, enemy.State())
	assert.Equal(t, 10, enemy.Health())
	assert.Nil(t, enemy.Target())
	assert.False(t, enemy.IsAttacking())

	enemy.Stun(0)
	clk.Advance(5 * time.Second)
	assert.Len(t, log.events, before, "subscribers are cleared by Reset")
}

func TestRanged_FiresAfterAim(t *testing.T) {
	env, clk := newEnv(t)
	enemy := enemyOf(t, env, combat.ArchetypeRanged, 10)
	p := engaged(t, env, enemy)
	enemy.SetPosition(combat.Vec{X: 1200})

	require.True(t, enemy.BeginAttack())
	clk.Advance(300 * time.Millisecond)
	assert.Nil(t, p.Counter().Victim(), "rifle shots are never counterable")

	clk.Advance(2999 * time.Millisecond)
	assert.Equal(t, 100, p.Health())
	clk.Advance(time.Millisecond)
	assert.Equal(t, 98, p.Health())
}

func TestRanged_OutOfRangeMisses(t *testing.T) {
	env, clk := newEnv(t)
	enemy := enemyOf(t, env, combat.ArchetypeRanged, 10)
	p := engaged(t, env, enemy)
	enemy.SetPosition(combat.Vec{X: 1600})

	require.True(t, enemy.BeginAttack())
	clk.Advance(5 * time.Second)
	assert.Equal(t, 100, p.Health())
	assert.Equal(t, combat.StateIdle, enemy.State())
}

func TestRanged_DamageWhileAimingCancels(t *testing.T) {
	env, clk := newEnv(t)
	enemy := enemyOf(t, env, combat.ArchetypeRanged, 10)
	p := engaged(t, env, enemy)

	require.True(t, enemy.BeginAttack())
	clk.Advance(time.Second)
	require.Equal(t, combat.StateAttacking, enemy.State())
	enemy.ReceiveDamage(combat.Hit{Amount: 3, Source: p, Kind: combat.DamageStrike})

	assert.Equal(t, combat.StateRecovering, enemy.State())
	clk.Advance(5 * time.Second)
	assert.Equal(t, 100, p.Health())
}

func TestBehaviorFor_UnknownArchetype(t *testing.T) {
	_, err := combat.BehaviorFor("dragon")
	assert.ErrorIs(t, err, combat.ErrUnknownArchetype)

	env, _ := newEnv(t)
	_, err = combat.NewEnemy(env, combat.Profile{Archetype: combat.ArchetypePlayer})
	assert.ErrorIs(t, err, combat.ErrUnknownArchetype)
}
