package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/tupyy/taskcore/pkg/scheduler"
)

const (
	WorkloadSkewed  = "skewed"
	WorkloadUniform = "uniform"

	VariantSerial    = "serial"
	VariantPerTask   = "per-task"
	VariantScheduler = "scheduler"
)

type Configuration struct {
	Scheduler Scheduler `mapstructure:"scheduler"`
	Bench     Bench     `mapstructure:"bench"`
	LogFormat string    `mapstructure:"log-format" default:"console"`
	LogLevel  string    `mapstructure:"log-level" default:"info"`
}

type Scheduler struct {
	Workers     int           `mapstructure:"workers" default:"0"`
	MaxPending  int           `mapstructure:"max-pending" default:"0"`
	StealBatch  int           `mapstructure:"steal-batch" default:"32"`
	IdleInitial time.Duration `mapstructure:"idle-initial" default:"50us"`
	IdleMax     time.Duration `mapstructure:"idle-max" default:"10ms"`
}

type Bench struct {
	Workload    string        `mapstructure:"workload" default:"skewed"`
	Tasks       int           `mapstructure:"tasks" default:"10"`
	BigCost     int           `mapstructure:"big-cost" default:"10000"`
	CostUnit    time.Duration `mapstructure:"cost-unit" default:"20us"`
	ComputeTime time.Duration `mapstructure:"compute-time" default:"100ms"`
	Variants    []string      `mapstructure:"variants" default:"[\"serial\",\"per-task\",\"scheduler\"]"`
}

// NewConfigurationWithDefaults returns a configuration with every default
// applied.
func NewConfigurationWithDefaults() (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set configuration defaults: %w", err)
	}
	return cfg, nil
}

// Load applies the defaults, overlays whatever v knows about (config file,
// env, bound flags) and validates the result.
func Load(v *viper.Viper) (*Configuration, error) {
	cfg, err := NewConfigurationWithDefaults()
	if err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) Validate() error {
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q: must be 'console' or 'json'", c.LogFormat)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log-level %q: %w", c.LogLevel, err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	return c.Bench.Validate()
}

func (s Scheduler) Validate() error {
	if s.Workers < 0 || s.Workers > scheduler.MaxWorkers {
		return fmt.Errorf("invalid scheduler workers %d: must be between 0 and %d", s.Workers, scheduler.MaxWorkers)
	}
	if s.MaxPending < 0 {
		return fmt.Errorf("invalid scheduler max-pending %d", s.MaxPending)
	}
	if s.StealBatch < 1 {
		return fmt.Errorf("invalid scheduler steal-batch %d", s.StealBatch)
	}
	if s.IdleInitial <= 0 || s.IdleMax < s.IdleInitial {
		return fmt.Errorf("invalid scheduler idle backoff: initial %s, max %s", s.IdleInitial, s.IdleMax)
	}
	return nil
}

// Options translates the section into scheduler options.
func (s Scheduler) Options() []scheduler.Option {
	return []scheduler.Option{
		scheduler.WithWorkers(s.Workers),
		scheduler.WithMaxPending(s.MaxPending),
		scheduler.WithStealBatch(s.StealBatch),
		scheduler.WithIdleBackoff(s.IdleInitial, s.IdleMax),
	}
}

func (b Bench) Validate() error {
	if b.Workload != WorkloadSkewed && b.Workload != WorkloadUniform {
		return fmt.Errorf("invalid workload %q: must be %q or %q", b.Workload, WorkloadSkewed, WorkloadUniform)
	}
	if b.Tasks < 1 {
		return fmt.Errorf("invalid number of tasks %d", b.Tasks)
	}
	if b.BigCost < 1 {
		return fmt.Errorf("invalid big-cost %d", b.BigCost)
	}
	if b.CostUnit < 0 || b.ComputeTime < 0 {
		return fmt.Errorf("invalid cost-unit %s or compute-time %s", b.CostUnit, b.ComputeTime)
	}
	if len(b.Variants) == 0 {
		return fmt.Errorf("no variant selected")
	}
	for _, v := range b.Variants {
		if !slices.Contains([]string{VariantSerial, VariantPerTask, VariantScheduler}, v) {
			return fmt.Errorf("invalid variant %q", v)
		}
	}
	return nil
}
