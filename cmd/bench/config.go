package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// benchConfig mirrors the flag set for YAML-driven runs. Example:
//
//	cap: 200000
//	variant: clock
//	buffer: queue
//	bufcap: 128
//	workload:
//	  workers: 16
//	  duration: 30s
//	  reads: 90
//	  keys: 2000000
//	  zipf_s: 1.2
//	  zipf_v: 1.0
type benchConfig struct {
	Cap     int    `mapstructure:"cap"`
	Shards  int    `mapstructure:"shards"`
	Variant string `mapstructure:"variant"`
	Buffer  string `mapstructure:"buffer"`
	BufCap  int    `mapstructure:"bufcap"`

	Workload struct {
		Workers  int           `mapstructure:"workers"`
		Duration time.Duration `mapstructure:"duration"`
		Reads    int           `mapstructure:"reads"`
		Keys     int           `mapstructure:"keys"`
		ZipfS    float64       `mapstructure:"zipf_s"`
		ZipfV    float64       `mapstructure:"zipf_v"`
	} `mapstructure:"workload"`
}

// loadConfig reads a YAML benchmark description.
func loadConfig(path string) (*benchConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults matching the flag defaults, so a sparse file is fine.
	v.SetDefault("variant", "sieve")
	v.SetDefault("buffer", "slots")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg benchConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

type applyFn func()

// applyConfig applies file values for every flag the user did not set
// explicitly on the command line; explicit flags win over the file.
func applyConfig(cfg *benchConfig, appliers map[string]applyFn) {
	setExplicitly := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setExplicitly[f.Name] = true })

	zero := map[string]bool{
		"cap":      cfg.Cap == 0,
		"shards":   cfg.Shards == 0,
		"variant":  cfg.Variant == "",
		"buffer":   cfg.Buffer == "",
		"bufcap":   cfg.BufCap == 0,
		"workers":  cfg.Workload.Workers == 0,
		"duration": cfg.Workload.Duration == 0,
		"reads":    cfg.Workload.Reads == 0,
		"keys":     cfg.Workload.Keys == 0,
		"zipf_s":   cfg.Workload.ZipfS == 0,
		"zipf_v":   cfg.Workload.ZipfV == 0,
	}

	for name, apply := range appliers {
		if setExplicitly[name] || zero[name] {
			continue // keep the flag's value
		}
		apply()
	}
}
