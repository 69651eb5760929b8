package greenhub

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config tunes a Hub's ambient behavior. It never changes scheduling
// semantics — only logging verbosity, the default capacity new Queues get
// when a caller doesn't specify one, and how often a repeated EINTR retry
// is logged.
type Config struct {
	DefaultQueueCapacity int
	LogLevel             string
	ProbeEINTRLogEvery   int
	ProbeBackend         string
}

func defaultConfig() Config {
	return Config{
		DefaultQueueCapacity: 0, // 0 == unbounded
		LogLevel:             "info",
		ProbeEINTRLogEvery:   32,
		ProbeBackend:         probeBackendName,
	}
}

// fileConfig is the shape of an optional greenhub.toml, decoded directly
// via BurntSushi/toml rather than only through viper's own file-format
// glue, so this module actually exercises the dependency.
type fileConfig struct {
	DefaultQueueCapacity int    `toml:"default_queue_capacity"`
	LogLevel             string `toml:"log_level"`
	ProbeEINTRLogEvery   int    `toml:"probe_eintr_log_every"`
}

func loadTOMLFile(path string) (fileConfig, bool) {
	var fc fileConfig
	if _, err := os.Stat(path); err != nil {
		return fc, false
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		Logger.Warn().Err(err).Str("path", path).Msg("greenhub: ignoring unreadable config file")
		return fileConfig{}, false
	}
	return fc, true
}

// LoadConfig builds a Config from defaults, an optional ./greenhub.toml,
// and GREENHUB_-prefixed environment variables (env wins over file, file
// wins over defaults). Absence of both is not an error — NewHub calls this
// to get sane defaults with zero required setup.
func LoadConfig() Config {
	cfg := defaultConfig()

	if fc, ok := loadTOMLFile("greenhub.toml"); ok {
		if fc.DefaultQueueCapacity != 0 {
			cfg.DefaultQueueCapacity = fc.DefaultQueueCapacity
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
		if fc.ProbeEINTRLogEvery != 0 {
			cfg.ProbeEINTRLogEvery = fc.ProbeEINTRLogEvery
		}
	}

	v := viper.New()
	v.SetEnvPrefix("GREENHUB")
	v.AutomaticEnv()
	v.SetDefault("default_queue_capacity", cfg.DefaultQueueCapacity)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("probe_eintr_log_every", cfg.ProbeEINTRLogEvery)

	cfg.DefaultQueueCapacity = v.GetInt("default_queue_capacity")
	if lvl := strings.ToLower(v.GetString("log_level")); lvl != "" {
		cfg.LogLevel = lvl
	}
	if n := v.GetInt("probe_eintr_log_every"); n > 0 {
		cfg.ProbeEINTRLogEvery = n
	}
	cfg.ProbeBackend = probeBackendName
	return cfg
}
