package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/internal/flexcost"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	"github.com/angelmondragon/marketsync-backend/pkg/mercadolibre"
	"github.com/angelmondragon/marketsync-backend/pkg/period"
)

// MarketplaceClient is the slice of the Mercado Libre API the sync reads.
type MarketplaceClient interface {
	SearchOrders(ctx context.Context, sellerID int64, params mercadolibre.SearchParams) (*mercadolibre.SearchResult, error)
	GetOrder(ctx context.Context, sellerID, orderID int64) (*mercadolibre.Order, error)
	GetOrderShipment(ctx context.Context, sellerID, orderID int64) (*mercadolibre.Shipment, error)
	GetShipment(ctx context.Context, sellerID, shipmentID int64) (*mercadolibre.Shipment, error)
	GetShipmentCosts(ctx context.Context, sellerID, shipmentID int64) (*mercadolibre.ShipmentCosts, error)
	GetOrderBillingInfo(ctx context.Context, sellerID, orderID int64) (mercadolibre.BillingInfo, error)
}

// FlexRecomputer rewrites the month's courier cost after orders change.
type FlexRecomputer interface {
	Recompute(ctx context.Context, sellerID int64, ym period.YearMonth) (*flexcost.Result, error)
}

// ListingResolver fills SKUs the marketplace omitted from a listing binding.
type ListingResolver interface {
	FindByListing(ctx context.Context, platform enums.Platform, listingID string, variationID *int64) (*models.Product, *models.SecondarySku, error)
}

// Repository persists synchronized orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertBuyer(ctx context.Context, buyer *models.Buyer) error
	UpsertSeller(ctx context.Context, seller *models.Seller) error
	FindOrder(ctx context.Context, id int64) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order, items []models.OrderItem, payments []models.Payment) error
	ListOrders(ctx context.Context, sellerID int64, from, to time.Time) ([]models.Order, error)
}
