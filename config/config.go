// Package config loads the simulation configuration from YAML.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pherosim/catalog"
	"pherosim/engine"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SimulationKind is the only kind of config document this package understands.
const SimulationKind = "Simulation"

// ErrUnknownKind is returned when the config document's kind is not SimulationKind.
var ErrUnknownKind = errors.New("unknown config kind")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// OuterConfig is the envelope of every config document: a kind selecting the schema of def.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Config holds the tunables of one simulation run.
type Config struct {
	Seed int64 `yaml:"seed"`
	// MsPerTick is the period of the main loop.
	MsPerTick float64 `yaml:"msPerTick" validate:"gt=0"`
	// DispersionInterval is the number of ticks between dispersion passes.
	DispersionInterval int     `yaml:"dispersionInterval" validate:"gt=0"`
	PooledThreshold    float64 `yaml:"pooledThreshold" validate:"gte=0"`
	RetainedThreshold  float64 `yaml:"retainedThreshold" validate:"gte=0"`
	// Owners are the owner ids the field mirror tracks. Owner 0 holds environmental substances.
	Owners []int `yaml:"owners" validate:"required,min=1,dive,gte=0"`
	// Level names the map fixture: debug or full.
	Level string `yaml:"level" validate:"oneof=debug full"`
	// RunDeadline optionally bounds the run, e.g. {duration: 10m}.
	RunDeadline map[string]string `yaml:"runDeadline"`
	// CommandBuffer is the capacity of the channels between the main thread and the worker.
	CommandBuffer int                                `yaml:"commandBuffer" validate:"gte=0"`
	Display       Display                            `yaml:"display"`
	Catalog       map[catalog.Type]catalog.Override `yaml:"catalog"`
}

// Display selects what the web view and console dump show. It may change while running.
type Display struct {
	Substance catalog.Type `yaml:"substance" validate:"required"`
	Owner     int          `yaml:"owner" validate:"gte=0"`
	// PublishEvery is the number of ticks between snapshots sent to the views.
	PublishEvery int `yaml:"publishEvery" validate:"gt=0"`
}

// Default returns the configuration of the shipped simulation.
func Default() *Config {
	return &Config{
		Seed:               1,
		MsPerTick:          16,
		DispersionInterval: 6,
		PooledThreshold:    0.5,
		RetainedThreshold:  1,
		Owners:             []int{0, 1},
		Level:              "debug",
		CommandBuffer:      256,
		Display: Display{
			Substance:    catalog.COLONY,
			Owner:        1,
			PublishEvery: 6,
		},
	}
}

// Engine returns the engine tunables.
func (cfg *Config) Engine() engine.Config {
	return engine.Config{
		MsPerTick:         cfg.MsPerTick,
		PooledThreshold:   cfg.PooledThreshold,
		RetainedThreshold: cfg.RetainedThreshold,
		Seed:              cfg.Seed,
	}
}

// Tick is the main loop period.
func (cfg *Config) Tick() time.Duration {
	return time.Duration(cfg.MsPerTick * float64(time.Millisecond))
}

// WithRunDeadline returns a context extended by the run deadline, if one is specified.
func (cfg *Config) WithRunDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.RunDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("run deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	if val, ok := cfg.RunDeadline["deadline"]; ok {
		deadline, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return nil, nil, fmt.Errorf("run deadline: %w", err)
		}
		innerCtx, cancel := context.WithDeadline(ctx, deadline)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads the config file at path. Fields absent from the file keep their defaults.
func FromYaml(path string) (*Config, error) {
	vp := newViper(path)
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decode(vp)
}

// Watch calls onChange with the display section every time the file at path is rewritten
// with a valid config. Invalid rewrites are reported to onError and otherwise ignored.
func Watch(path string, onChange func(Display), onError func(error)) error {
	vp := newViper(path)
	if err := vp.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	vp.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(vp)
		if err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(cfg.Display)
	})
	vp.WatchConfig()
	return nil
}

func newViper(path string) *viper.Viper {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	return vp
}

// decode checks the kind of the envelope, then decodes def into the typed config. Viper
// folds keys to lower case, so def is read from the file itself to keep camelCase keys and
// substance names intact.
func decode(vp *viper.Viper) (*Config, error) {
	outerConfig := &OuterConfig{}
	if err := vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if outerConfig.Kind != SimulationKind {
		return nil, fmt.Errorf("%q: %w", outerConfig.Kind, ErrUnknownKind)
	}

	raw, err := os.ReadFile(vp.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("read def: %w", err)
	}
	var doc struct {
		Def yaml.Node `yaml:"def"`
	}
	if err = yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode def: %w", err)
	}
	cfg := Default()
	if doc.Def.Kind != 0 {
		if err = doc.Def.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode def: %w", err)
		}
	}
	if err = validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
