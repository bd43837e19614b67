package backend

import (
	"context"
	"fmt"
	"log/slog"

	"notas/internal/adapters"
	"notas/internal/amqp"
	"notas/internal/memory"
	"notas/internal/services"
	"notas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	publisher := f.dialAMQP(config)

	noteService := services.NewNoteService(sqliteRepo, publisher)
	adapter := adapters.NewServiceStore(sqliteRepo, noteService)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Backend: adapter,
		Cleanup: adapter.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.NewStore()

	publisher := f.dialAMQP(config)

	noteService := services.NewNoteService(store, publisher)
	adapter := adapters.NewServiceStore(store, noteService)

	f.logger.Info("Initialized memory backend", "amqp_enabled", publisher != nil)

	return &BackendResult{
		Backend: adapter,
		Cleanup: adapter.Close,
	}, nil
}

// dialAMQP connects the optional sync publisher. A missing broker is not
// fatal; notes just stay local until the worker catches up.
func (f *DefaultFactory) dialAMQP(config Config) services.SyncPublisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
