package pendingsales

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/internal/inventory"
	"github.com/angelmondragon/marketsync-backend/internal/mappings"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
)

type CreateInput struct {
	Platform        enums.Platform
	ExternalOrderID string
	PlatformSKU     string
	Title           string
	Quantity        int
	SaleDate        time.Time
	RawPayload      json.RawMessage
}

type ResolveInput struct {
	ProductID     int64
	CreateMapping bool
	ResolvedBy    string
}

type Filter struct {
	Status     *enums.PendingSaleStatus
	PlatformID *enums.Platform
}

type ServiceParams struct {
	Repo       *Repository
	Ledger     *inventory.Ledger
	Mappings   *mappings.Resolver
	Audits     *inventory.AuditRepository
	Activation time.Time
	Logger     *logger.Logger
	Clock      func() time.Time
}

// Service manages sales that could not be matched to a product.
type Service struct {
	repo       *Repository
	ledger     *inventory.Ledger
	mappings   *mappings.Resolver
	audits     *inventory.AuditRepository
	activation time.Time
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("pending sales repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Mappings == nil {
		return nil, fmt.Errorf("mapping resolver required")
	}
	if params.Audits == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:       params.Repo,
		ledger:     params.Ledger,
		mappings:   params.Mappings,
		audits:     params.Audits,
		activation: params.Activation,
		logg:       logg,
		now:        clock,
	}, nil
}

// WithTx returns a service whose writes join tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	return &clone
}

// Create queues an unmatched sale. A sale already queued for the same
// (platform, order, sku) is returned unchanged.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.PendingSale, error) {
	sku := strings.TrimSpace(input.PlatformSKU)
	orderID := strings.TrimSpace(input.ExternalOrderID)
	switch {
	case !input.Platform.IsValid():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid platform")
	case orderID == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external_order_id is required")
	case sku == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform_sku is required")
	case input.Quantity <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = s.now()
	}
	sale := &models.PendingSale{
		PlatformID:      input.Platform,
		ExternalOrderID: orderID,
		PlatformSKU:     sku,
		Title:           input.Title,
		Quantity:        input.Quantity,
		SaleDate:        saleDate.UTC(),
		Status:          enums.PendingSaleStatusPending,
		RawPayload:      input.RawPayload,
	}
	inserted, err := s.repo.Insert(ctx, sale)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return s.repo.FindByKey(ctx, input.Platform, orderID, sku)
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"platform": input.Platform.String(), "order_id": orderID, "sku": sku})
	s.logg.Info(ctx, "pending sale queued")
	return sale, nil
}

// Resolve attaches the sale to a product: stock is deducted, an optional
// mapping is created and an OK_INTERNO audit row is written, all in one
// transaction. Stock is checked before anything changes.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, input ResolveInput) (*models.PendingSale, error) {
	if input.ProductID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	resolvedBy := strings.TrimSpace(input.ResolvedBy)
	if resolvedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolved_by is required")
	}

	var resolved *models.PendingSale
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sale, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status != enums.PendingSaleStatusPending {
			return notPending(sale)
		}

		productID := input.ProductID
		if err := s.ledger.WithTx(tx).RequireStock(ctx, productID, sale.Quantity); err != nil {
			return err
		}
		ok, err := txRepo.Transition(ctx, id, enums.PendingSaleStatusMapped, &productID, resolvedBy, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return notPending(sale)
		}

		platform := sale.PlatformID
		orderID := sale.ExternalOrderID
		if _, err := s.ledger.WithTx(tx).DeductStock(ctx, productID, sale.Quantity, inventory.ChangeMeta{
			ChangeType:      enums.ChangeTypeOrder,
			Actor:           resolvedBy,
			PlatformID:      &platform,
			ExternalOrderID: &orderID,
			Reason:          "pending sale resolved",
		}); err != nil {
			return err
		}

		if input.CreateMapping {
			_, err := s.mappings.WithTx(tx).CreateMapping(ctx, mappings.CreateMappingInput{
				Platform:    sale.PlatformID,
				PlatformSKU: sale.PlatformSKU,
				ProductID:   productID,
				Quantity:    1,
			})
			if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				return err
			}
		}

		if _, err := s.audits.WithTx(tx).Insert(ctx, &models.ProductAudit{
			PlatformID:      sale.PlatformID,
			ExternalOrderID: sale.ExternalOrderID,
			PlatformSKU:     sale.PlatformSKU,
			ProductID:       &productID,
			Status:          enums.AuditStatusOKInterno,
			Quantity:        sale.Quantity,
			Reason:          "pending sale resolved",
		}); err != nil {
			return err
		}

		resolved, err = txRepo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"pending_sale_id": id.String(), "product_id": input.ProductID})
	s.logg.Info(ctx, "pending sale resolved")
	return resolved, nil
}

// Ignore closes the sale without touching stock.
func (s *Service) Ignore(ctx context.Context, id uuid.UUID, resolvedBy string) (*models.PendingSale, error) {
	resolvedBy = strings.TrimSpace(resolvedBy)
	if resolvedBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolved_by is required")
	}
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Transition(ctx, id, enums.PendingSaleStatusIgnored, nil, resolvedBy, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notPending(sale)
	}
	return s.repo.FindByID(ctx, id)
}

// FindAll hides sales dated before tracking was activated.
func (s *Service) FindAll(ctx context.Context, filter Filter) ([]models.PendingSale, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	return s.repo.List(ctx, listQuery{
		status:     filter.Status,
		platformID: filter.PlatformID,
		since:      s.activation,
	})
}

func notPending(sale *models.PendingSale) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "pending sale already handled").
		WithDetails(map[string]any{"pending_sale_id": sale.ID.String(), "status": sale.Status.String()})
}
