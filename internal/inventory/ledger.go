package inventory

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

const (
	stockField   = "stock"
	systemActor  = "system"
	historyLimit = 200
)

// ChangeMeta describes who changed stock and why; it is copied onto the history row.
type ChangeMeta struct {
	ChangeType      enums.ChangeType
	Actor           string
	PlatformID      *enums.Platform
	ExternalOrderID *string
	Reason          string
}

// Change is the result of one stock mutation.
type Change struct {
	ProductID int64
	OldStock  int
	NewStock  int
	Delta     int
	History   models.ProductHistory
}

// Ledger mutates product stock and records every change in product_histories.
type Ledger struct {
	repo *Repository
}

func NewLedger(repo *Repository) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Ledger{repo: repo}, nil
}

// WithTx returns a ledger whose mutations join tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{repo: l.repo.WithTx(tx)}
}

// DeductStock subtracts qty without a floor; callers validate availability first.
func (l *Ledger) DeductStock(ctx context.Context, productID int64, qty int, meta ChangeMeta) (*Change, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return l.apply(ctx, productID, -qty, meta)
}

func (l *Ledger) RestoreStock(ctx context.Context, productID int64, qty int, meta ChangeMeta) (*Change, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return l.apply(ctx, productID, qty, meta)
}

// AdjustStock applies a signed operator correction.
func (l *Ledger) AdjustStock(ctx context.Context, productID int64, delta int, meta ChangeMeta) (*Change, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment must be non-zero")
	}
	meta.ChangeType = enums.ChangeTypeAdjustment
	return l.apply(ctx, productID, delta, meta)
}

// ValidateStockAvailability reports stock >= qty. A missing product is false, not an error.
func (l *Ledger) ValidateStockAvailability(ctx context.Context, productID int64, qty int) (bool, error) {
	product, err := l.repo.FindProduct(ctx, productID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return product.Stock >= qty, nil
}

// RequireStock fails with INSUFFICIENT_STOCK when the product cannot cover qty.
func (l *Ledger) RequireStock(ctx context.Context, productID int64, qty int) error {
	product, err := l.repo.FindProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product.Stock < qty {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID, "available": product.Stock, "required": qty})
	}
	return nil
}

// RecordChange appends a history row through tx.
func (l *Ledger) RecordChange(ctx context.Context, tx *gorm.DB, entry *models.ProductHistory) error {
	return l.repo.WithTx(tx).AppendHistory(ctx, entry)
}

// History lists the most recent changes for a product.
func (l *Ledger) History(ctx context.Context, productID int64, limit int) ([]models.ProductHistory, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	if _, err := l.repo.FindProduct(ctx, productID); err != nil {
		return nil, err
	}
	return l.repo.ListHistory(ctx, productID, limit)
}

func (l *Ledger) apply(ctx context.Context, productID int64, delta int, meta ChangeMeta) (*Change, error) {
	if meta.ChangeType == "" {
		meta.ChangeType = enums.ChangeTypeManual
	}
	if !meta.ChangeType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid change type")
	}
	if meta.Actor == "" {
		meta.Actor = systemActor
	}

	var change *Change
	err := l.repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := l.repo.WithTx(tx)
		before, after, err := txRepo.ApplyStockDelta(ctx, productID, delta)
		if err != nil {
			return err
		}

		amount := delta
		entry := &models.ProductHistory{
			ProductID:        productID,
			Field:            stockField,
			OldValue:         strconv.Itoa(before),
			NewValue:         strconv.Itoa(after),
			ChangeType:       meta.ChangeType,
			AdjustmentAmount: &amount,
			Actor:            meta.Actor,
			PlatformID:       meta.PlatformID,
			ExternalOrderID:  meta.ExternalOrderID,
			Reason:           meta.Reason,
		}
		if err := l.RecordChange(ctx, tx, entry); err != nil {
			return err
		}
		change = &Change{ProductID: productID, OldStock: before, NewStock: after, Delta: delta, History: *entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}
