package mappings

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

// Source tells which lookup matched a SKU.
type Source string

const (
	SourceMapping      Source = "mapping"
	SourceSecondarySku Source = "secondary_sku"
	SourceInternalSku  Source = "internal_sku"
)

// ResolvedProduct is one product a platform SKU maps to; Quantity is the
// number of units consumed per unit sold.
type ResolvedProduct struct {
	Product  models.Product
	Quantity int
	Source   Source
}

// Lookup carries every key a marketplace line item may be matched by.
type Lookup struct {
	Platform     enums.Platform
	SKU          string
	AlternateSKU string
	ListingID    string
	VariationID  *int64
}

type CreateMappingInput struct {
	Platform    enums.Platform
	PlatformSKU string
	ProductID   int64
	Quantity    int
}

// Resolver translates platform SKUs into local products.
type Resolver struct {
	repo *Repository
}

func NewResolver(repo *Repository) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("mappings repository required")
	}
	return &Resolver{repo: repo}, nil
}

func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	return &Resolver{repo: r.repo.WithTx(tx)}
}

// FindProductBySku returns the first actively mapped product, else the product
// whose internal SKU equals sku, else nil.
func (r *Resolver) FindProductBySku(ctx context.Context, platform enums.Platform, sku string) (*models.Product, error) {
	resolved, err := r.FindProductsBySku(ctx, platform, sku)
	if err != nil || len(resolved) == 0 {
		return nil, err
	}
	product := resolved[0].Product
	return &product, nil
}

// FindProductsBySku returns every active mapping for sku; with none, an
// internal SKU match is returned with multiplier 1.
func (r *Resolver) FindProductsBySku(ctx context.Context, platform enums.Platform, sku string) ([]ResolvedProduct, error) {
	out, err := r.mapped(ctx, platform, sku)
	if err != nil || len(out) > 0 {
		return out, err
	}
	return r.internal(ctx, sku)
}

func (r *Resolver) mapped(ctx context.Context, platform enums.Platform, sku string) ([]ResolvedProduct, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, nil
	}
	rows, err := r.repo.ActiveMappings(ctx, platform, sku)
	if err != nil {
		return nil, err
	}
	out := make([]ResolvedProduct, 0, len(rows))
	for _, row := range rows {
		if row.Product == nil {
			continue
		}
		out = append(out, ResolvedProduct{Product: *row.Product, Quantity: multiplier(row.Quantity), Source: SourceMapping})
	}
	return out, nil
}

func (r *Resolver) internal(ctx context.Context, sku string) ([]ResolvedProduct, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, nil
	}
	product, err := r.repo.ProductByInternalSKU(ctx, sku)
	if err != nil || product == nil {
		return nil, err
	}
	return []ResolvedProduct{{Product: *product, Quantity: 1, Source: SourceInternalSku}}, nil
}

// FindByListing resolves a listing (and variation) through the secondary SKU table.
func (r *Resolver) FindByListing(ctx context.Context, platform enums.Platform, listingID string, variationID *int64) (*models.Product, *models.SecondarySku, error) {
	if strings.TrimSpace(listingID) == "" {
		return nil, nil, nil
	}
	secondary, err := r.repo.SecondaryByListing(ctx, platform, listingID, variationID)
	if err != nil || secondary == nil {
		return nil, nil, err
	}
	product, err := r.repo.ProductByID(ctx, secondary.ProductID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return product, secondary, nil
}

// Resolve tries mappings for the platform SKU and then the alternate SKU,
// then a direct internal SKU match on either, then the listing.
func (r *Resolver) Resolve(ctx context.Context, lookup Lookup) ([]ResolvedProduct, error) {
	steps := []func() ([]ResolvedProduct, error){
		func() ([]ResolvedProduct, error) { return r.mapped(ctx, lookup.Platform, lookup.SKU) },
		func() ([]ResolvedProduct, error) { return r.mapped(ctx, lookup.Platform, lookup.AlternateSKU) },
		func() ([]ResolvedProduct, error) { return r.internal(ctx, lookup.SKU) },
		func() ([]ResolvedProduct, error) { return r.internal(ctx, lookup.AlternateSKU) },
	}
	for _, step := range steps {
		resolved, err := step()
		if err != nil {
			return nil, err
		}
		if len(resolved) > 0 {
			return resolved, nil
		}
	}

	product, _, err := r.FindByListing(ctx, lookup.Platform, lookup.ListingID, lookup.VariationID)
	if err != nil || product == nil {
		return nil, err
	}
	return []ResolvedProduct{{Product: *product, Quantity: 1, Source: SourceSecondarySku}}, nil
}

// CreateMapping links a platform SKU to a product. An existing link is a conflict.
func (r *Resolver) CreateMapping(ctx context.Context, input CreateMappingInput) (*models.ProductMapping, error) {
	sku := strings.TrimSpace(input.PlatformSKU)
	switch {
	case !input.Platform.IsValid():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid platform")
	case sku == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform_sku is required")
	case input.ProductID <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	case input.Quantity < 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	if _, err := r.repo.ProductByID(ctx, input.ProductID); err != nil {
		return nil, err
	}

	existing, err := r.repo.FindMapping(ctx, input.Platform, sku, input.ProductID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, mappingConflict(input.Platform, sku, input.ProductID)
	}

	mapping := &models.ProductMapping{
		PlatformID:  input.Platform,
		PlatformSKU: sku,
		ProductID:   input.ProductID,
		Quantity:    multiplier(input.Quantity),
		IsActive:    true,
	}
	inserted, err := r.repo.InsertMapping(ctx, mapping)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, mappingConflict(input.Platform, sku, input.ProductID)
	}
	return mapping, nil
}

func (r *Resolver) DeactivateMapping(ctx context.Context, id int64) error {
	return r.repo.Deactivate(ctx, id)
}

func mappingConflict(platform enums.Platform, sku string, productID int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "mapping already exists").
		WithDetails(map[string]any{"platform": platform.String(), "platform_sku": sku, "product_id": productID})
}

func multiplier(q int) int {
	if q <= 0 {
		return 1
	}
	return q
}
