// Package worker mirrors budget change events to an external sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetcal/internal/amqp"
	"budgetcal/internal/core"
	"budgetcal/internal/log"
	"budgetcal/internal/sheets"
)

// MirrorWorker appends added and updated transactions to a sheet as an
// audit trail. Delete, import and reset events are logged only; the
// sheet keeps every row that was ever written.
type MirrorWorker struct {
	appender sheets.TransactionAppender
}

func NewMirrorWorker(appender sheets.TransactionAppender) *MirrorWorker {
	return &MirrorWorker{appender: appender}
}

// HandleChangeMessage processes a single change message from AMQP
func (w *MirrorWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"op", msg.Op,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldVersion, msg.Version)

	switch msg.Op {
	case amqp.OpAdd, amqp.OpUpdate:
		t, err := transactionFromMessage(msg)
		if err != nil {
			// Malformed payloads are dropped, requeueing cannot fix them.
			slog.WarnContext(ctx, "Dropping malformed change message",
				"op", msg.Op,
				"transaction_id", msg.TransactionID,
				"error", err)
			return nil
		}

		ref, err := w.appender.Append(ctx, t)
		if err != nil {
			return fmt.Errorf("append transaction to sheet: %w", err)
		}

		slog.InfoContext(ctx, "Mirrored transaction to sheet",
			log.FieldTransactionID, msg.TransactionID,
			log.FieldSheetsRef, ref)
		return nil

	case amqp.OpDelete, amqp.OpImport, amqp.OpReset:
		slog.InfoContext(ctx, "Dataset change acknowledged",
			"op", msg.Op,
			"transaction_id", msg.TransactionID,
			"version", msg.Version)
		return nil

	default:
		slog.WarnContext(ctx, "Unknown change operation", "op", msg.Op)
		return nil
	}
}

func transactionFromMessage(msg *amqp.ChangeMessage) (core.Transaction, error) {
	kind, err := core.NormalizeKind(msg.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("kind: %w", err)
	}

	date, err := core.ParseDate(msg.StartDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("start date: %w", err)
	}

	t := core.Transaction{
		ID:          msg.TransactionID,
		Kind:        kind,
		Amount:      core.Money{Cents: msg.AmountCents},
		Description: msg.Description,
		StartDate:   date,
		Frequency:   core.NormalizeFrequency(msg.Frequency),
		Category:    msg.Category,
	}
	if t.Category == "" {
		t.Category = core.DefaultCategoryLabel
	}

	return t, t.Validate()
}
