package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/marketsync-backend/api/responses"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
	"github.com/angelmondragon/marketsync-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/marketsync-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL = 24 * time.Hour
	stockIdempotencyTTL   = 7 * 24 * time.Hour
)

// idempotentRoute is a method plus a slash separated path template where "*"
// matches exactly one segment.
type idempotentRoute struct {
	method   string
	segments []string
	ttl      time.Duration
}

func route(method, template string, ttl time.Duration) idempotentRoute {
	return idempotentRoute{method: method, segments: splitPath(template), ttl: ttl}
}

func (r idempotentRoute) matches(method string, segments []string) bool {
	if r.method != method || len(r.segments) != len(segments) {
		return false
	}
	for i, want := range r.segments {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

// Operator mutations that must not apply twice when a client retries.
var idempotentRoutes = []idempotentRoute{
	route(http.MethodPost, "/api/v1/mappings", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/v1/pending-sales/*/resolve", stockIdempotencyTTL),
	route(http.MethodPost, "/api/v1/pending-sales/*/ignore", defaultIdempotencyTTL),
	route(http.MethodPost, "/api/v1/products/*/stock/adjust", stockIdempotencyTTL),
}

func routeTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return 0, false
	}
	for _, candidate := range idempotentRoutes {
		if candidate.matches(method, segments) {
			return candidate.ttl, true
		}
	}
	return 0, false
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// storedResponse is what a replay writes back. Body is base64 in JSON.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type replayCache struct {
	store pkgredis.IdempotencyStore
}

func (c replayCache) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func (c replayCache) save(ctx context.Context, key string, resp storedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = c.store.SetNX(ctx, key, string(payload), ttl)
	return err
}

// Idempotency replays the first response for a repeated Idempotency-Key on the
// routes above. Keys are scoped per operator, method and path; reusing a key
// with a different body is a conflict. A nil store disables the middleware.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			cache := replayCache{store: store}
			key := store.IdempotencyKey(requestScope(r), clientKey)
			fingerprint := fingerprint(body)

			previous, err := cache.lookup(ctx, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if previous != nil {
				if previous.Fingerprint != fingerprint {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
					return
				}
				replay(w, previous)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.status
			if status == 0 {
				status = http.StatusOK
			}
			// failed requests may be retried with the same key
			if status >= http.StatusInternalServerError {
				return
			}
			err = cache.save(ctx, key, storedResponse{
				Fingerprint: fingerprint,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			}, ttl)
			if err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "idempotency_key", clientKey), "persist idempotency record", err)
			}
		})
	}
}

func requestScope(r *http.Request) string {
	return strings.Join([]string{ActorFromContext(r.Context()), r.Method, strings.TrimSuffix(r.URL.Path, "/")}, "|")
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
