// Package config defines the configuration of the taskcore tooling.
//
// Defaults come from `default` struct tags applied with creasty/defaults.
// Load then overlays every key viper knows about: a config file, TASKCORE_*
// environment variables and bound command-line flags.
//
// # Configuration Structure
//
//	Configuration
//	├── Scheduler      - Work-stealing pool settings
//	├── Bench          - Timing harness workload
//	├── LogFormat      - Logging format
//	└── LogLevel       - Logging verbosity
//
// # Scheduler Configuration
//
//	┌──────────────┬─────────┬────────────────────────────────────────────┐
//	│ Field        │ Default │ Description                                │
//	├──────────────┼─────────┼────────────────────────────────────────────┤
//	│ Workers      │ 0       │ Pool size, 0 means one worker per CPU      │
//	│ MaxPending   │ 0       │ Queued + running task cap, 0 means no cap  │
//	│ StealBatch   │ 32      │ Max tasks moved from the injector per pull │
//	│ IdleInitial  │ 50us    │ First idle backoff interval                │
//	│ IdleMax      │ 10ms    │ Largest idle backoff interval              │
//	└──────────────┴─────────┴────────────────────────────────────────────┘
//
// # Bench Configuration
//
//	┌─────────────┬──────────────────────────────┬─────────────────────────────────────┐
//	│ Field       │ Default                      │ Description                         │
//	├─────────────┼──────────────────────────────┼─────────────────────────────────────┤
//	│ Workload    │ "skewed"                     │ "skewed" or "uniform"               │
//	│ Tasks       │ 10                           │ Number of tasks                     │
//	│ BigCost     │ 10000                        │ Cost units of the big skewed task   │
//	│ CostUnit    │ 20us                         │ Duration of one cost unit           │
//	│ ComputeTime │ 100ms                        │ Duration of one uniform task        │
//	│ Variants    │ serial, per-task, scheduler  │ Executors to compare                │
//	└─────────────┴──────────────────────────────┴─────────────────────────────────────┘
//
// # Usage Example
//
//	v := viper.New()
//	v.SetEnvPrefix("TASKCORE")
//	v.AutomaticEnv()
//	cfg, err := config.Load(v)
//	if err != nil {
//	    return err
//	}
//	sched, err := scheduler.NewScheduler(cfg.Scheduler.Options()...)
package config
