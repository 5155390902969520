package combat

import "time"

// PlayerTuning holds the player's combat numbers.
type PlayerTuning struct {
	MaxHealth        int
	BaseDamage       float64
	DamageMultiplier float64
	MaxDamage        float64

	WindUp         time.Duration
	AttackHitAt    time.Duration
	AttackDuration time.Duration
	RecoverTime    time.Duration
	DodgeTime      time.Duration
	EvadeTime      time.Duration

	ComboResetTime       time.Duration
	ComboSpeedMultiplier float64
	MaxComboSpeedBonus   float64

	MaxStamina            float64
	DodgeCost             float64
	StaminaRegenDelay     time.Duration
	StaminaRegenPerSecond float64
	StaminaRegenTick      time.Duration

	CounterDuration time.Duration
	CounterDamage   int
}

// EnemyTuning holds timings shared by every hostile archetype.
type EnemyTuning struct {
	WindUp          time.Duration
	CounterableTime time.Duration
	CompletionTime  time.Duration
	RecoverTime     time.Duration
	TimeToGetUp     time.Duration
	StunTime        time.Duration
	RepositionTime  time.Duration
}

// BruteTuning holds the brute's attack selection and timing.
type BruteTuning struct {
	FarCloseDistance float64
	ChargeChance     float64
	SwipeTime        time.Duration
	SwipeRecovery    time.Duration
	ChargeSpeed      float64
	ChargeMaxTime    time.Duration
	ChargeRecovery   time.Duration
	JumpSlamTime     time.Duration
	JumpSlamRecovery time.Duration
	AoeRadius        float64
	StunTime         time.Duration
}

// RangedTuning holds the rifle enemy's aim timing.
type RangedTuning struct {
	AimTime      time.Duration
	AimingRange  float64
	FireRecovery time.Duration
}

// Tuning is the complete set of combat numbers for one world.
type Tuning struct {
	Player PlayerTuning
	Enemy  EnemyTuning
	Brute  BruteTuning
	Ranged RangedTuning
}

// DefaultTuning returns the stock combat numbers.
func DefaultTuning() Tuning {
	return Tuning{
		Player: PlayerTuning{
			MaxHealth:             100,
			BaseDamage:            3,
			DamageMultiplier:      0.5,
			MaxDamage:             10,
			WindUp:                100 * time.Millisecond,
			AttackHitAt:           400 * time.Millisecond,
			AttackDuration:        800 * time.Millisecond,
			RecoverTime:           600 * time.Millisecond,
			DodgeTime:             500 * time.Millisecond,
			EvadeTime:             600 * time.Millisecond,
			ComboResetTime:        5 * time.Second,
			ComboSpeedMultiplier:  0.3,
			MaxComboSpeedBonus:    1.5,
			MaxStamina:            100,
			DodgeCost:             25,
			StaminaRegenDelay:     3 * time.Second,
			StaminaRegenPerSecond: 10,
			StaminaRegenTick:      100 * time.Millisecond,
			CounterDuration:       1200 * time.Millisecond,
			CounterDamage:         10,
		},
		Enemy: EnemyTuning{
			WindUp:          300 * time.Millisecond,
			CounterableTime: 1400 * time.Millisecond,
			CompletionTime:  2 * time.Second,
			RecoverTime:     800 * time.Millisecond,
			TimeToGetUp:     3 * time.Second,
			StunTime:        3 * time.Second,
			RepositionTime:  500 * time.Millisecond,
		},
		Brute: BruteTuning{
			FarCloseDistance: 500,
			ChargeChance:     40,
			SwipeTime:        900 * time.Millisecond,
			SwipeRecovery:    600 * time.Millisecond,
			ChargeSpeed:      500,
			ChargeMaxTime:    4 * time.Second,
			ChargeRecovery:   time.Second,
			JumpSlamTime:     time.Second,
			JumpSlamRecovery: time.Second,
			AoeRadius:        500,
			StunTime:         4 * time.Second,
		},
		Ranged: RangedTuning{
			AimTime:      3 * time.Second,
			AimingRange:  1500,
			FireRecovery: time.Second,
		},
	}
}
