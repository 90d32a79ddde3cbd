package commands

import (
	"context"
	"errors"
	"io/fs"

	"github.com/redis/go-redis/v9"

	"github.com/chair4ce/swarm/internal/boardview"
	"github.com/chair4ce/swarm/internal/config"
	"github.com/chair4ce/swarm/pkg/blackboard"
)

// loadConfig reads the configured swarm.yml. A missing file at the default
// path falls back to defaults (file backend); an explicitly broken file is
// an error.
func loadConfig() (*config.SwarmConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && configPath == "swarm.yml" {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// redisOptions builds connection options from config.
func redisOptions(cfg *config.SwarmConfig) *redis.Options {
	return &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// openBoard opens the configured backend for one task.
func openBoard(cfg *config.SwarmConfig, taskID string) (blackboard.Board, error) {
	if cfg.Backend == config.BackendRedis {
		return blackboard.NewRedisBoard(redisOptions(cfg), taskID)
	}
	return blackboard.NewFileBoard(cfg.StateDir, taskID)
}

// boardOpener adapts openBoard for boardview.
func boardOpener(cfg *config.SwarmConfig) boardview.Opener {
	return func(taskID string) (blackboard.Board, error) {
		return openBoard(cfg, taskID)
	}
}

// listTaskIDs enumerates tasks on the configured backend.
func listTaskIDs(ctx context.Context, cfg *config.SwarmConfig) ([]string, error) {
	if cfg.Backend == config.BackendRedis {
		rdb := redis.NewClient(redisOptions(cfg))
		defer rdb.Close()
		return blackboard.ScanTaskIDs(ctx, rdb)
	}
	return blackboard.ListTaskFiles(cfg.StateDir)
}
