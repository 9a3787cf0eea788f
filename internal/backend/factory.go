package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/kv"
	"ledger/internal/kv/memory"
	"ledger/internal/kv/postgres"
	"ledger/internal/kv/sqlite"
	"ledger/internal/ledger"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured medium, attaches the optional AMQP
// notifier and opens the ledger on top, seeding default categories.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	medium, err := f.openMedium(ctx, config)
	if err != nil {
		return nil, err
	}

	opts := []ledger.Option{ledger.WithLogger(f.logger)}
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, ledger.WithNotifier(amqpClient))
		}
	}

	cleanup := func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, medium.Close())
		return errors.Join(errs...)
	}

	store, err := ledger.Open(ctx, medium, opts...)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	f.logger.Info("Initialized ledger backend",
		"backend", config.Type.String(),
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Ledger:  store,
		Medium:  medium,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) openMedium(ctx context.Context, config Config) (kv.Store, error) {
	switch config.Type {
	case MemoryBackend:
		if config.DataDirectory == "" {
			return memory.New(), nil
		}
		f.logger.Info("Seeding memory backend from files", "data_directory", config.DataDirectory)
		return memory.NewFromFiles(config.DataDirectory, ledger.KeyTransactions, ledger.KeyCategories), nil
	case SQLiteBackend:
		s, err := sqlite.NewStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return s, nil
	case PostgresBackend:
		s, err := postgres.Connect(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		f.logger.Info("Connected to PostgreSQL store")
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
