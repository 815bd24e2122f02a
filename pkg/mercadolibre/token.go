package mercadolibre

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

const (
	defaultTokenURL = "https://api.mercadolibre.com/oauth/token"
	expirySkew      = time.Minute
)

// TokenStore persists seller credentials.
type TokenStore interface {
	Load(ctx context.Context, sellerID int64) (*models.SellerToken, error)
	Save(ctx context.Context, token *models.SellerToken) error
}

// GormTokenStore keeps tokens in the seller_tokens table.
type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) Load(ctx context.Context, sellerID int64) (*models.SellerToken, error) {
	var token models.SellerToken
	err := s.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeAuthExpired, "seller has not authorized the application").
			WithDetails(map[string]any{"seller_id": sellerID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller token")
	}
	return &token, nil
}

func (s *GormTokenStore) Save(ctx context.Context, token *models.SellerToken) error {
	token.ExpiresAt = token.ExpiresAt.UTC()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seller_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
	}).Create(token).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save seller token")
	}
	return nil
}

// OAuthTokenProvider serves stored access tokens and renews them with the
// refresh_token grant when they expire or the API rejects them.
type OAuthTokenProvider struct {
	store      TokenStore
	oauth      *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// OAuthConfig carries the application credentials registered with Mercado Libre.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	HTTPClient   *http.Client
}

func NewOAuthTokenProvider(store TokenStore, cfg OAuthConfig) (*OAuthTokenProvider, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("mercadolibre client id and secret are required")
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	return &OAuthTokenProvider{
		store: store,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: cfg.HTTPClient,
		now:        time.Now,
	}, nil
}

// Token returns the stored access token, refreshing it first when it is about to expire.
func (p *OAuthTokenProvider) Token(ctx context.Context, sellerID int64) (string, error) {
	stored, err := p.store.Load(ctx, sellerID)
	if err != nil {
		return "", err
	}
	if stored.AccessToken != "" && p.now().Add(expirySkew).Before(stored.ExpiresAt) {
		return stored.AccessToken, nil
	}
	return p.refresh(ctx, stored)
}

// Refresh unconditionally exchanges the refresh token for a new access token.
func (p *OAuthTokenProvider) Refresh(ctx context.Context, sellerID int64) (string, error) {
	stored, err := p.store.Load(ctx, sellerID)
	if err != nil {
		return "", err
	}
	return p.refresh(ctx, stored)
}

func (p *OAuthTokenProvider) refresh(ctx context.Context, stored *models.SellerToken) (string, error) {
	if stored.RefreshToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeAuthExpired, "seller refresh token missing")
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	// an already-expired token forces the source to hit the token endpoint
	source := p.oauth.TokenSource(ctx, &oauth2.Token{
		RefreshToken: stored.RefreshToken,
		Expiry:       p.now().Add(-time.Hour),
	})
	fresh, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", pkgerrors.Wrap(pkgerrors.CodeAuthExpired, err, "mercadolibre refused the refresh token")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "refresh mercadolibre token")
	}

	updated := &models.SellerToken{
		SellerID:     stored.SellerID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    fresh.Expiry,
	}
	if fresh.RefreshToken != "" {
		updated.RefreshToken = fresh.RefreshToken
	}
	if updated.ExpiresAt.IsZero() {
		updated.ExpiresAt = p.now().Add(6 * time.Hour)
	}
	if err := p.store.Save(ctx, updated); err != nil {
		return "", err
	}
	return updated.AccessToken, nil
}
