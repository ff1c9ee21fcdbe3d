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

// RoutePlanConfig holds the operational parameters of the batched route
// optimizer. Operators tune these without redeploying.
type RoutePlanConfig struct {
	// StartPoint is the depot address every route departs from and
	// returns to.
	StartPoint string `mapstructure:"startPoint"`
	// ChunkSize caps waypoints per provider request.
	ChunkSize int `mapstructure:"chunkSize"`
	// ChunkDelayMS spaces consecutive provider requests.
	ChunkDelayMS int `mapstructure:"chunkDelayMs"`
}

func DefaultRoutePlanConfig() RoutePlanConfig {
	return RoutePlanConfig{
		StartPoint:   "臺東縣消防局防災教育館",
		ChunkSize:    7,
		ChunkDelayMS: 200,
	}
}

func (c RoutePlanConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMS) * time.Millisecond
}

type RoutePlanHolder struct {
	current atomic.Value // holds RoutePlanConfig
}

// NewRoutePlanHolder reads routing.yml and keeps it hot-reloaded.
func NewRoutePlanHolder() (*RoutePlanHolder, error) {
	v := viper.New()

	v.SetConfigName("routing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/mealtrack/config")
	v.AddConfigPath("/etc/mealtrack")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEALTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRoutePlanConfig()
	v.SetDefault("routing.startPoint", defaults.StartPoint)
	v.SetDefault("routing.chunkSize", defaults.ChunkSize)
	v.SetDefault("routing.chunkDelayMs", defaults.ChunkDelayMS)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg RoutePlanConfig
	if err := v.UnmarshalKey("routing", &cfg); err != nil {
		return nil, err
	}
	if err := validateRoutePlanConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RoutePlanHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RoutePlanConfig
		if err := v.UnmarshalKey("routing", &updated); err != nil {
			log.Printf("[route-config] reload failed: %v", err)
			return
		}
		if err := validateRoutePlanConfig(updated); err != nil {
			log.Printf("[route-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[route-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticRoutePlanHolder wraps a fixed plan without file watching.
func NewStaticRoutePlanHolder(cfg RoutePlanConfig) *RoutePlanHolder {
	holder := &RoutePlanHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *RoutePlanHolder) Get() RoutePlanConfig {
	return h.current.Load().(RoutePlanConfig)
}

func validateRoutePlanConfig(cfg RoutePlanConfig) error {
	if strings.TrimSpace(cfg.StartPoint) == "" {
		return errors.New("routing.startPoint cannot be empty")
	}
	if cfg.ChunkSize <= 0 {
		return errors.New("routing.chunkSize must be positive")
	}
	if cfg.ChunkDelayMS < 0 {
		return errors.New("routing.chunkDelayMs cannot be negative")
	}
	return nil
}
