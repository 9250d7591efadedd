package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/greenhands/greenhands-shell/config"
	"github.com/greenhands/greenhands-shell/internal/adapters/filestore"
	"github.com/greenhands/greenhands-shell/internal/adapters/keyring"
	redisstore "github.com/greenhands/greenhands-shell/internal/adapters/redis"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// OpenStorage returns the local storage selected by cfg.Storage.Driver and a closer
// releasing whatever it holds.
func OpenStorage(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (ports.LocalStorage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open redis storage: %w", err)
		}
		store := redisstore.NewStorage(client, cfg.Storage.Namespace)
		logger.DebugContext(ctx, "using redis storage", "key", store.Key())
		return store, client.Close, nil

	case config.StorageDriverKeyring:
		logger.DebugContext(ctx, "using keychain storage", "service", keyring.ServiceName, "namespace", cfg.Storage.Namespace)
		return keyring.NewStorage(cfg.Storage.Namespace), noop, nil

	case config.StorageDriverFile, "":
		store := filestore.New(cfg.Storage.Path)
		logger.DebugContext(ctx, "using file storage", "path", store.Path())
		return store, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
