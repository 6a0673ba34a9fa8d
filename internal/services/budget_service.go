package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"budgetcal/internal/amqp"
	"budgetcal/internal/core"
	"budgetcal/internal/engine"
	"budgetcal/internal/storage"
)

// ChangePublisher publishes dataset change events. A nil publisher
// disables events without changing service behavior.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// BudgetService orchestrates engine mutations, persistence and change
// events. Mutations go to the engine first, then the store; publish
// failures are logged and never fail the request.
type BudgetService struct {
	engine    *engine.Engine
	store     storage.Store
	publisher ChangePublisher
}

func NewBudgetService(eng *engine.Engine, store storage.Store, publisher ChangePublisher) *BudgetService {
	return &BudgetService{
		engine:    eng,
		store:     store,
		publisher: publisher,
	}
}

// Engine exposes the projection engine for read paths.
func (s *BudgetService) Engine() *engine.Engine {
	return s.engine
}

// Load reads the persisted dataset into the engine.
func (s *BudgetService) Load(ctx context.Context) error {
	data, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	s.engine.Load(data)

	slog.InfoContext(ctx, "Dataset loaded",
		"transactions", len(data.Transactions),
		"starting_balance_cents", data.StartingBalance.Cents)
	return nil
}

// AddTransaction validates and stores a new transaction. An empty ID is
// assigned a fresh UUID.
func (s *BudgetService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := s.engine.Add(t); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	if err := s.persist(ctx); err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.OpAdd, s.engine.Version(), t))
	return t, nil
}

// UpdateTransaction replaces the transaction with the given ID.
func (s *BudgetService) UpdateTransaction(ctx context.Context, id string, t core.Transaction) error {
	t.ID = id
	if err := s.engine.Update(id, t); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewChangeMessage(amqp.OpUpdate, s.engine.Version(), t))
	return nil
}

// DeleteTransaction removes the transaction with the given ID.
func (s *BudgetService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.engine.Delete(id); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, &amqp.ChangeMessage{
		Op:            amqp.OpDelete,
		TransactionID: id,
		Version:       s.engine.Version(),
		Timestamp:     time.Now(),
	})
	return nil
}

// SetStartingBalance updates the anchor balance and its effective date.
func (s *BudgetService) SetStartingBalance(ctx context.Context, amount core.Money, effective core.Date) error {
	s.engine.SetStartingBalance(amount, effective)
	return s.persist(ctx)
}

// AddCategory registers a custom category label for the given kind.
func (s *BudgetService) AddCategory(ctx context.Context, kind core.Kind, label string) (bool, error) {
	added := s.engine.AddCategory(kind, label)
	if !added {
		return false, nil
	}
	return true, s.persist(ctx)
}

// RemoveCategory drops a category label; affected transactions are
// reassigned to the default category.
func (s *BudgetService) RemoveCategory(ctx context.Context, kind core.Kind, label string) (bool, error) {
	removed := s.engine.RemoveCategory(kind, label)
	if !removed {
		return false, nil
	}
	return true, s.persist(ctx)
}

// Import merges a snapshot into the current dataset and persists the
// result. Duplicates of existing transactions count as skipped.
func (s *BudgetService) Import(ctx context.Context, data []byte) (storage.ImportStats, error) {
	imported, stats, err := storage.DecodeSnapshot(data)
	if err != nil {
		return stats, err
	}

	merged, duplicates := storage.MergeDataset(s.engine.Dataset(), imported)
	stats.Imported -= duplicates
	stats.Skipped += duplicates

	s.engine.Load(merged)
	if err := s.persist(ctx); err != nil {
		return stats, err
	}

	s.publish(ctx, amqp.NewDatasetMessage(amqp.OpImport, s.engine.Version()))

	slog.InfoContext(ctx, "Snapshot imported",
		"imported", stats.Imported,
		"skipped", stats.Skipped)
	return stats, nil
}

// Export encodes the current dataset as a snapshot.
func (s *BudgetService) Export(ctx context.Context) ([]byte, error) {
	return storage.EncodeSnapshot(s.engine.Dataset(), time.Now())
}

// Reset clears all transactions and restores default categories.
func (s *BudgetService) Reset(ctx context.Context) error {
	s.engine.Reset()
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewDatasetMessage(amqp.OpReset, s.engine.Version()))
	return nil
}

func (s *BudgetService) persist(ctx context.Context) error {
	if err := s.store.Save(ctx, s.engine.Dataset()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist dataset", "error", err)
		return fmt.Errorf("save dataset: %w", err)
	}
	return nil
}

func (s *BudgetService) publish(ctx context.Context, msg *amqp.ChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		// Change is already persisted locally, don't fail the request.
		slog.ErrorContext(ctx, "Failed to publish change message",
			"op", msg.Op,
			"transaction_id", msg.TransactionID,
			"error", err)
	}
}

// Close closes the underlying store.
func (s *BudgetService) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}
