package store

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/casbridge/casbridge/internal/config"
	"github.com/casbridge/casbridge/internal/core"
)

// FileConfig are the backend-specific fields for the file store.
type FileConfig struct {
	// Path is the base directory for the per-key record files.
	Path string `mapstructure:"path"`
}

// RedisConfig are the backend-specific fields for the Redis store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Build constructs the store backend selected by the configuration.
func Build(cfg config.StoreConfig, codec core.RecordCodec) (core.Store, error) {
	switch cfg.Type {
	case "memory":
		return NewInMemoryStore(), nil

	case "file":
		var fileCfg FileConfig
		if err := mapstructure.Decode(cfg.Config, &fileCfg); err != nil {
			return nil, fmt.Errorf("decoding file store config: %w", err)
		}
		if fileCfg.Path == "" {
			return nil, fmt.Errorf("file store requires 'path'")
		}
		return NewFileStore(fileCfg.Path, codec)

	case "redis":
		var redisCfg RedisConfig
		if err := mapstructure.Decode(cfg.Config, &redisCfg); err != nil {
			return nil, fmt.Errorf("decoding redis store config: %w", err)
		}
		if redisCfg.Addr == "" {
			return nil, fmt.Errorf("redis store requires 'addr'")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		return NewRedisStore(client, codec), nil

	default:
		return nil, fmt.Errorf("unknown store type '%s'", cfg.Type)
	}
}
