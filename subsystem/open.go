package subsystem

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/config"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms/credentials"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/messaging/nats"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/store/memory"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/store/mongodb"
	redisstore "github.com/root-sector-ltd-and-co-kg/module-security-compliance/store/redis"
)

// Open builds the stores, the KMS provider and the NATS publisher described
// by cfg and returns a Subsystem that releases them on Shutdown. Sealed KMS
// credentials in cfg are opened in place with the bootstrap key.
func Open(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, opLogger zerolog.Logger) (*Subsystem, error) {
	deps := Deps{Registerer: reg, Logger: opLogger}

	release := func() {
		for i := len(deps.Closers) - 1; i >= 0; i-- {
			_ = deps.Closers[i](context.Background())
		}
	}

	if err := openStorage(ctx, cfg.Storage, &deps); err != nil {
		release()
		return nil, err
	}

	if cfg.Encryption.KMS.Type != "" {
		provider, err := OpenKMS(ctx, cfg.Encryption)
		if err != nil {
			release()
			return nil, err
		}
		deps.KMS = provider
	}

	if cfg.NATS.Enabled {
		natsCfg := nats.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = cfg.NATS.Name
		natsCfg.Token = cfg.NATS.Token
		if cfg.NATS.Timeout > 0 {
			natsCfg.Timeout = cfg.NATS.Timeout
		}
		client, err := nats.NewClient(natsCfg)
		if err != nil {
			release()
			return nil, err
		}
		deps.Publisher = client
		deps.Closers = append(deps.Closers, func(context.Context) error { return client.Close() })
	}

	s, err := New(ctx, cfg, deps)
	if err != nil {
		release()
		return nil, err
	}
	return s, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig, deps *Deps) error {
	switch cfg.Backend {
	case config.BackendMemory, "":
		deps.Secrets = memory.NewSecretStore()
		deps.LogSink = memory.NewLogSink()
		deps.Data = memory.NewDataStore()
		deps.Settings = memory.NewSettingsStore()

	case config.BackendMongoDB:
		connectCtx := ctx
		if cfg.MongoDB.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, cfg.MongoDB.ConnectTimeout)
			defer cancel()
		}
		client, err := mongodb.Connect(connectCtx, cfg.MongoDB.URI)
		if err != nil {
			return err
		}
		deps.Closers = append(deps.Closers, client.Disconnect)

		db := client.Database(cfg.MongoDB.Database)
		deps.Secrets = mongodb.NewSecretStore(db)
		deps.LogSink = mongodb.NewLogSink(db)
		deps.Data = mongodb.NewDataStore(db, cfg.MongoDB.DataCollection)
		deps.Settings = mongodb.NewSettingsStore(db)

	case config.BackendRedis:
		opts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		deps.Closers = append(deps.Closers, func(context.Context) error { return client.Close() })

		store := redisstore.NewStore(client, cfg.Redis.Prefix)
		deps.Secrets = store
		deps.LogSink = store
		deps.Data = store
		deps.Settings = store

	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
	return nil
}

// OpenKMS opens sealed credentials with the bootstrap key, when one is
// configured, and creates the provider selected by cfg.KMS.Type
func OpenKMS(ctx context.Context, cfg config.EncryptionConfig) (*kms.Provider, error) {
	kmsCfg := cfg.KMS
	if cfg.BootstrapKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.BootstrapKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bootstrap key: %w", err)
		}
		manager, err := credentials.NewManager(key)
		if err != nil {
			return nil, err
		}
		if err := manager.OpenConfig(&kmsCfg); err != nil {
			return nil, err
		}
	}

	provider, err := kms.NewProvider(ctx, kmsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS provider: %w", err)
	}
	return provider, nil
}
