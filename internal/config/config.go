// Package config provides Viper-based configuration loading for the encounter server.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

// Server modes.
const (
	ModeStandalone = "standalone"
	ModeSimulate   = "simulate"
)

// Save backends.
const (
	BackendPostgres = "postgres"
	BackendLocal    = "local"
	BackendMemory   = "memory"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is "standalone" (real-time world) or "simulate" (virtual-time autoplay).
	Mode string `mapstructure:"mode"`
	// TickInterval is the wall-clock period between world advances.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// HealthAddr is the listen address of the gRPC health service.
	HealthAddr string `mapstructure:"health_addr"`
	// SimulateDuration caps the virtual time a simulation may run.
	SimulateDuration time.Duration `mapstructure:"simulate_duration"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// HealthInterval is the period between liveness pings while serving.
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is json or console.
	Format string `mapstructure:"format"`
}

// PlayerConfig overrides the player's combat numbers.
type PlayerConfig struct {
	MaxHealth        int           `mapstructure:"max_health"`
	BaseDamage       float64       `mapstructure:"base_damage"`
	DamageMultiplier float64       `mapstructure:"damage_multiplier"`
	MaxDamage        float64       `mapstructure:"max_damage"`
	ComboResetTime   time.Duration `mapstructure:"combo_reset_time"`
	MaxStamina       float64       `mapstructure:"max_stamina"`
	DodgeCost        float64       `mapstructure:"dodge_cost"`
	CounterDamage    int           `mapstructure:"counter_damage"`
}

// EnemyConfig overrides the timings shared by hostile archetypes.
type EnemyConfig struct {
	CounterableTime time.Duration `mapstructure:"counterable_time"`
	CompletionTime  time.Duration `mapstructure:"completion_time"`
	TimeToGetUp     time.Duration `mapstructure:"time_to_get_up"`
	StunTime        time.Duration `mapstructure:"stun_time"`
}

// BruteConfig overrides the brute's attack selection.
type BruteConfig struct {
	FarCloseDistance float64       `mapstructure:"far_close_distance"`
	ChargeChance     float64       `mapstructure:"charge_chance"`
	StunTime         time.Duration `mapstructure:"stun_time"`
}

// RangedConfig overrides the rifle enemy's aim.
type RangedConfig struct {
	AimTime time.Duration `mapstructure:"aim_time"`
}

// CombatConfig holds combat tuning. Zero fields keep the stock value.
type CombatConfig struct {
	Player PlayerConfig `mapstructure:"player"`
	Enemy  EnemyConfig  `mapstructure:"enemy"`
	Brute  BruteConfig  `mapstructure:"brute"`
	Ranged RangedConfig `mapstructure:"ranged"`
}

// Tuning overlays the configured values onto combat.DefaultTuning.
func (c CombatConfig) Tuning() combat.Tuning {
	t := combat.DefaultTuning()
	setInt(&t.Player.MaxHealth, c.Player.MaxHealth)
	setFloat(&t.Player.BaseDamage, c.Player.BaseDamage)
	setFloat(&t.Player.DamageMultiplier, c.Player.DamageMultiplier)
	setFloat(&t.Player.MaxDamage, c.Player.MaxDamage)
	setDur(&t.Player.ComboResetTime, c.Player.ComboResetTime)
	setFloat(&t.Player.MaxStamina, c.Player.MaxStamina)
	setFloat(&t.Player.DodgeCost, c.Player.DodgeCost)
	setInt(&t.Player.CounterDamage, c.Player.CounterDamage)

	setDur(&t.Enemy.CounterableTime, c.Enemy.CounterableTime)
	setDur(&t.Enemy.CompletionTime, c.Enemy.CompletionTime)
	setDur(&t.Enemy.TimeToGetUp, c.Enemy.TimeToGetUp)
	setDur(&t.Enemy.StunTime, c.Enemy.StunTime)

	setFloat(&t.Brute.FarCloseDistance, c.Brute.FarCloseDistance)
	setFloat(&t.Brute.ChargeChance, c.Brute.ChargeChance)
	setDur(&t.Brute.StunTime, c.Brute.StunTime)

	setDur(&t.Ranged.AimTime, c.Ranged.AimTime)
	return t
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setDur(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// EncounterConfig holds encounter-level delays.
type EncounterConfig struct {
	StartDelay            time.Duration `mapstructure:"start_delay"`
	AttackStartDelayBasic time.Duration `mapstructure:"attack_start_delay_basic"`
	AttackStartDelayHeavy time.Duration `mapstructure:"attack_start_delay_heavy"`
	DespawnDelay          time.Duration `mapstructure:"despawn_delay"`
	ThinkInterval         time.Duration `mapstructure:"think_interval"`
}

// Timing converts the section into encounter.Timing.
func (e EncounterConfig) Timing() encounter.Timing {
	return encounter.Timing{
		StartDelay:       e.StartDelay,
		AttackDelayBasic: e.AttackStartDelayBasic,
		AttackDelayHeavy: e.AttackStartDelayHeavy,
		DespawnDelay:     e.DespawnDelay,
		ThinkInterval:    e.ThinkInterval,
	}
}

// ContentConfig locates the data-driven content directories.
type ContentConfig struct {
	ArchetypeDir string `mapstructure:"archetype_dir"`
	EncounterDir string `mapstructure:"encounter_dir"`
	ScriptDir    string `mapstructure:"script_dir"`
	AIDir        string `mapstructure:"ai_dir"`
	// Watch enables hot reload of archetype templates.
	Watch bool `mapstructure:"watch"`
	// WatchDebounce coalesces bursts of file events.
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	// ScriptInstructionLimit bounds each Lua hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// SaveConfig selects where checkpoints live.
type SaveConfig struct {
	// Backend is postgres, local, or memory.
	Backend string `mapstructure:"backend"`
	// Slot names the save slot.
	Slot string `mapstructure:"slot"`
	// AppName names the local save directory for the local backend.
	AppName string `mapstructure:"app_name"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Combat    CombatConfig    `mapstructure:"combat"`
	Encounter EncounterConfig `mapstructure:"encounter"`
	Content   ContentConfig   `mapstructure:"content"`
	Save      SaveConfig      `mapstructure:"save"`
}

// Validate checks all configuration values and returns every problem found.
//
// Postcondition: Returns nil if the configuration is valid.
func (c Config) Validate() error {
	var errs []error

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err)
	}
	if c.Save.Backend == BackendPostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err)
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err)
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err)
	}
	if err := validateEncounter(c.Encounter); err != nil {
		errs = append(errs, err)
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err)
	}
	if err := validateSave(c.Save); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Mode != ModeStandalone && s.Mode != ModeSimulate {
		errs = append(errs, fmt.Sprintf("server.mode must be one of [standalone, simulate], got %q", s.Mode))
	}
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("server.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.Mode == ModeStandalone {
		if _, _, err := net.SplitHostPort(s.HealthAddr); err != nil {
			errs = append(errs, fmt.Sprintf("server.health_addr %q is not host:port", s.HealthAddr))
		}
	}
	if s.SimulateDuration <= 0 {
		errs = append(errs, fmt.Sprintf("server.simulate_duration must be > 0, got %s", s.SimulateDuration))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, fmt.Sprintf("database.min_conns must be 0-%d, got %d", d.MaxConns, d.MinConns))
	}
	if d.HealthInterval <= 0 {
		errs = append(errs, fmt.Sprintf("database.health_interval must be > 0, got %s", d.HealthInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.Player.MaxHealth < 0 {
		errs = append(errs, fmt.Sprintf("combat.player.max_health must be >= 0, got %d", c.Player.MaxHealth))
	}
	if c.Player.DodgeCost < 0 {
		errs = append(errs, fmt.Sprintf("combat.player.dodge_cost must be >= 0, got %v", c.Player.DodgeCost))
	}
	if c.Brute.ChargeChance < 0 || c.Brute.ChargeChance > 100 {
		errs = append(errs, fmt.Sprintf("combat.brute.charge_chance must be 0-100, got %v", c.Brute.ChargeChance))
	}
	for name, d := range map[string]time.Duration{
		"combat.player.combo_reset_time": c.Player.ComboResetTime,
		"combat.enemy.counterable_time":  c.Enemy.CounterableTime,
		"combat.enemy.completion_time":   c.Enemy.CompletionTime,
		"combat.enemy.time_to_get_up":    c.Enemy.TimeToGetUp,
		"combat.enemy.stun_time":         c.Enemy.StunTime,
		"combat.brute.stun_time":         c.Brute.StunTime,
		"combat.ranged.aim_time":         c.Ranged.AimTime,
	} {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0, got %s", name, d))
		}
	}
	t := c.Tuning()
	if t.Enemy.CounterableTime > t.Enemy.CompletionTime {
		errs = append(errs, fmt.Sprintf("combat.enemy.counterable_time (%s) must not exceed completion_time (%s)",
			t.Enemy.CounterableTime, t.Enemy.CompletionTime))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEncounter(e EncounterConfig) error {
	var errs []string
	for name, d := range map[string]time.Duration{
		"encounter.start_delay":              e.StartDelay,
		"encounter.attack_start_delay_basic": e.AttackStartDelayBasic,
		"encounter.attack_start_delay_heavy": e.AttackStartDelayHeavy,
		"encounter.despawn_delay":            e.DespawnDelay,
	} {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0, got %s", name, d))
		}
	}
	if e.ThinkInterval <= 0 {
		errs = append(errs, fmt.Sprintf("encounter.think_interval must be > 0, got %s", e.ThinkInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.ArchetypeDir == "" {
		errs = append(errs, "content.archetype_dir must not be empty")
	}
	if c.EncounterDir == "" {
		errs = append(errs, "content.encounter_dir must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if c.Watch && c.WatchDebounce <= 0 {
		errs = append(errs, "content.watch_debounce must be > 0 when content.watch is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSave(s SaveConfig) error {
	var errs []string
	switch s.Backend {
	case BackendPostgres, BackendMemory:
	case BackendLocal:
		if s.AppName == "" {
			errs = append(errs, "save.app_name must not be empty for the local backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("save.backend must be one of [postgres, local, memory], got %q", s.Backend))
	}
	if s.Slot == "" {
		errs = append(errs, "save.slot must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// New returns a Viper instance carrying the defaults and the SKIRMISH_
// environment overrides, with no file attached.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", ModeStandalone)
	v.SetDefault("server.tick_interval", "16ms")
	v.SetDefault("server.health_addr", "127.0.0.1:50051")
	v.SetDefault("server.simulate_duration", "10m")
	v.SetDefault("database.health_interval", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	timing := encounter.DefaultTiming()
	v.SetDefault("encounter.start_delay", timing.StartDelay)
	v.SetDefault("encounter.attack_start_delay_basic", timing.AttackDelayBasic)
	v.SetDefault("encounter.attack_start_delay_heavy", timing.AttackDelayHeavy)
	v.SetDefault("encounter.despawn_delay", timing.DespawnDelay)
	v.SetDefault("encounter.think_interval", timing.ThinkInterval)

	v.SetDefault("content.archetype_dir", "content/archetypes")
	v.SetDefault("content.encounter_dir", "content/encounters")
	v.SetDefault("content.script_dir", "content/scripts")
	v.SetDefault("content.ai_dir", "content/ai")
	v.SetDefault("content.watch", false)
	v.SetDefault("content.watch_debounce", "250ms")
	v.SetDefault("content.script_instruction_limit", 100000)

	v.SetDefault("save.backend", BackendMemory)
	v.SetDefault("save.slot", "default")
	v.SetDefault("save.app_name", "skirmish")
}
