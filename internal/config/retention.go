package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RetentionConfig controls the vaktmester cleanup window.
type RetentionConfig struct {
	LifespanDays int           `mapstructure:"lifespanDays"`
	RunInterval  time.Duration `mapstructure:"runInterval"`
}

func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		LifespanDays: 180,
		RunInterval:  time.Hour,
	}
}

// Lifespan returns the retention window as a duration.
func (c RetentionConfig) Lifespan() time.Duration {
	return time.Duration(c.LifespanDays) * 24 * time.Hour
}

// RetentionHolder exposes the current retention policy and reloads it when
// the backing config file changes, so the lifespan can be tuned without a
// restart.
type RetentionHolder struct {
	current atomic.Value // holds RetentionConfig
}

func NewRetentionHolder() (*RetentionHolder, error) {
	v := viper.New()

	v.SetConfigName("retention")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/regelport/config")
	v.AddConfigPath("/etc/regelport")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REGELPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRetentionConfig()
	v.SetDefault("retention.lifespanDays", defaults.LifespanDays)
	v.SetDefault("retention.runInterval", defaults.RunInterval)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg RetentionConfig
	if err := v.UnmarshalKey("retention", &cfg); err != nil {
		return nil, err
	}
	if err := validateRetentionConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RetentionHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RetentionConfig
		if err := v.UnmarshalKey("retention", &updated); err != nil {
			log.Printf("[retention-config] reload failed: %v", err)
			return
		}
		if err := validateRetentionConfig(updated); err != nil {
			log.Printf("[retention-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[retention-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticRetentionHolder pins the policy to a fixed value, with no file
// watching. Used where hot reload is unwanted.
func NewStaticRetentionHolder(cfg RetentionConfig) *RetentionHolder {
	holder := &RetentionHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *RetentionHolder) Get() RetentionConfig {
	return h.current.Load().(RetentionConfig)
}

func validateRetentionConfig(cfg RetentionConfig) error {
	if cfg.LifespanDays <= 0 {
		return errors.New("retention lifespanDays must be positive")
	}
	if cfg.RunInterval <= 0 {
		return errors.New("retention runInterval must be positive")
	}
	return nil
}
