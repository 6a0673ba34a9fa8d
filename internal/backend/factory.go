// Package backend selects and wires the persistence backend and the
// optional AMQP publisher from application configuration.
package backend

import (
	"fmt"

	"budgetcal/internal/amqp"
	"budgetcal/internal/config"
	"budgetcal/internal/log"
	"budgetcal/internal/storage"
)

// Type represents the persistence backend type
type Type string

const (
	FileBackend   Type = "file"
	SQLiteBackend Type = "sqlite"
)

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// Result holds the created store and optional AMQP client. AMQPClient is
// nil when no AMQP URL is configured or the broker is unreachable.
type Result struct {
	Store      storage.Store
	AMQPClient *amqp.Client
}

// Create builds the store and AMQP client described by cfg.
func Create(cfg *config.Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentBackend)

	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	var store storage.Store
	var err error

	switch backendType {
	case SQLiteBackend:
		store, err = storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	default:
		store, err = storage.NewFileStore(cfg.DataFilePath)
		if err != nil {
			return nil, fmt.Errorf("initialize file store: %w", err)
		}
		logger.Info("Initialized file backend", "path", cfg.DataFilePath)
	}

	// AMQP is optional: a missing broker disables change events only.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	return &Result{
		Store:      store,
		AMQPClient: amqpClient,
	}, nil
}
