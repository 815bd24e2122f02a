package mappings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketsync-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

func newResolver(t *testing.T) (*Resolver, *gorm.DB) {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	resolver, err := NewResolver(NewRepository(conn))
	require.NoError(t, err)
	return resolver, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, sku string) *models.Product {
	t.Helper()
	product := &models.Product{InternalSKU: sku, Name: sku, Stock: 5, Cost: decimal.Zero, Price: decimal.Zero}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestFindProductBySkuPrefersActiveMapping(t *testing.T) {
	resolver, conn := newResolver(t)
	ctx := context.Background()
	mapped := seedProduct(t, conn, "INT-1")
	seedProduct(t, conn, "ML-SKU")

	_, err := resolver.CreateMapping(ctx, CreateMappingInput{Platform: enums.PlatformMercadoLibre, PlatformSKU: "ML-SKU", ProductID: mapped.ID})
	require.NoError(t, err)

	product, err := resolver.FindProductBySku(ctx, enums.PlatformMercadoLibre, "ML-SKU")
	require.NoError(t, err)
	require.NotNil(t, product)
	require.Equal(t, mapped.ID, product.ID)

	// other platforms fall through to the internal sku
	product, err = resolver.FindProductBySku(ctx, enums.PlatformFalabella, "ML-SKU")
	require.NoError(t, err)
	require.NotNil(t, product)
	require.Equal(t, "ML-SKU", product.InternalSKU)
}

func TestFindProductBySkuMissingReturnsNil(t *testing.T) {
	resolver, _ := newResolver(t)

	product, err := resolver.FindProductBySku(context.Background(), enums.PlatformMercadoLibre, "NOPE")
	require.NoError(t, err)
	require.Nil(t, product)

	product, err = resolver.FindProductBySku(context.Background(), enums.PlatformMercadoLibre, "  ")
	require.NoError(t, err)
	require.Nil(t, product)
}

func TestFindProductsBySkuFansOutWithMultipliers(t *testing.T) {
	resolver, conn := newResolver(t)
	ctx := context.Background()
	a := seedProduct(t, conn, "A")
	b := seedProduct(t, conn, "B")

	_, err := resolver.CreateMapping(ctx, CreateMappingInput{Platform: enums.PlatformFalabella, PlatformSKU: "KIT", ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = resolver.CreateMapping(ctx, CreateMappingInput{Platform: enums.PlatformFalabella, PlatformSKU: "KIT", ProductID: b.ID})
	require.NoError(t, err)

	resolved, err := resolver.FindProductsBySku(ctx, enums.PlatformFalabella, "KIT")
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.Equal(t, a.ID, resolved[0].Product.ID)
	require.Equal(t, 2, resolved[0].Quantity)
	require.Equal(t, 1, resolved[1].Quantity)
	require.Equal(t, SourceMapping, resolved[1].Source)
}

func TestDeactivatedMappingIsIgnored(t *testing.T) {
	resolver, conn := newResolver(t)
	ctx := context.Background()
	p := seedProduct(t, conn, "INT")

	mapping, err := resolver.CreateMapping(ctx, CreateMappingInput{Platform: enums.PlatformMercadoLibre, PlatformSKU: "EXT", ProductID: p.ID})
	require.NoError(t, err)
	require.NoError(t, resolver.DeactivateMapping(ctx, mapping.ID))

	product, err := resolver.FindProductBySku(ctx, enums.PlatformMercadoLibre, "EXT")
	require.NoError(t, err)
	require.Nil(t, product)

	err = resolver.DeactivateMapping(ctx, 9999)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateMappingConflictAndValidation(t *testing.T) {
	resolver, conn := newResolver(t)
	ctx := context.Background()
	p := seedProduct(t, conn, "INT")

	input := CreateMappingInput{Platform: enums.PlatformMercadoLibre, PlatformSKU: "EXT", ProductID: p.ID}
	_, err := resolver.CreateMapping(ctx, input)
	require.NoError(t, err)

	_, err = resolver.CreateMapping(ctx, input)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = resolver.CreateMapping(ctx, CreateMappingInput{Platform: enums.PlatformMercadoLibre, PlatformSKU: "", ProductID: p.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = resolver.CreateMapping(ctx, CreateMappingInput{Platform: enums.Platform(9), PlatformSKU: "X", ProductID: p.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = resolver.CreateMapping(ctx, CreateMappingInput{Platform: enums.PlatformMercadoLibre, PlatformSKU: "X", ProductID: 777})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestResolvePrefersAlternateMappingOverInternalSku(t *testing.T) {
	resolver, conn := newResolver(t)
	ctx := context.Background()
	direct := seedProduct(t, conn, "FAL-123")
	mapped := seedProduct(t, conn, "KIT-CABLE")
	require.NoError(t, conn.Create(&models.ProductMapping{
		PlatformID: enums.PlatformFalabella, PlatformSKU: "SHOP-9", ProductID: mapped.ID, Quantity: 2, IsActive: true,
	}).Error)

	resolved, err := resolver.Resolve(ctx, Lookup{Platform: enums.PlatformFalabella, SKU: "FAL-123", AlternateSKU: "SHOP-9"})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, mapped.ID, resolved[0].Product.ID)
	require.Equal(t, SourceMapping, resolved[0].Source)
	require.Equal(t, 2, resolved[0].Quantity)

	resolved, err = resolver.Resolve(ctx, Lookup{Platform: enums.PlatformFalabella, SKU: "FAL-123", AlternateSKU: "SHOP-UNMAPPED"})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, direct.ID, resolved[0].Product.ID)
	require.Equal(t, SourceInternalSku, resolved[0].Source)
}

func TestResolveFallsBackThroughAlternateAndListing(t *testing.T) {
	resolver, conn := newResolver(t)
	ctx := context.Background()
	alt := seedProduct(t, conn, "SHOP-SKU")
	listed := seedProduct(t, conn, "LISTED")

	variation := int64(175000001)
	require.NoError(t, conn.Create(&models.SecondarySku{
		ProductID:   listed.ID,
		PlatformID:  enums.PlatformMercadoLibre,
		ListingID:   "MLC100",
		VariationID: &variation,
	}).Error)
	require.NoError(t, conn.Create(&models.SecondarySku{
		ProductID:  alt.ID,
		PlatformID: enums.PlatformMercadoLibre,
		ListingID:  "MLC200",
	}).Error)

	resolved, err := resolver.Resolve(ctx, Lookup{Platform: enums.PlatformFalabella, SKU: "UNKNOWN", AlternateSKU: "SHOP-SKU"})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, alt.ID, resolved[0].Product.ID)
	require.Equal(t, SourceInternalSku, resolved[0].Source)

	resolved, err = resolver.Resolve(ctx, Lookup{Platform: enums.PlatformMercadoLibre, ListingID: "MLC100", VariationID: &variation})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, listed.ID, resolved[0].Product.ID)
	require.Equal(t, SourceSecondarySku, resolved[0].Source)

	other := int64(1)
	resolved, err = resolver.Resolve(ctx, Lookup{Platform: enums.PlatformMercadoLibre, ListingID: "MLC200", VariationID: &other})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, alt.ID, resolved[0].Product.ID)

	resolved, err = resolver.Resolve(ctx, Lookup{Platform: enums.PlatformMercadoLibre, ListingID: "MLC100", VariationID: &other})
	require.NoError(t, err)
	require.Empty(t, resolved)
}
