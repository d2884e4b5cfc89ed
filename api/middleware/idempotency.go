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

	"github.com/angelmondragon/cellarbook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/cellarbook-backend/pkg/redis"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

// guardedWrites lists the POST routes whose retries would otherwise create a
// second wine, a second consumption or a second cellar entry. A "*" segment
// matches any single path segment.
var guardedWrites = [][]string{
	{"api", "v1", "wines", "scan"},
	{"api", "v1", "consumed"},
	{"api", "v1", "wishlist", "*", "move"},
}

// storedReply is what a successful first attempt left behind.
type storedReply struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency makes the guarded writes safe to retry: the same
// Idempotency-Key with the same body replays the first reply, a different
// body is rejected, and 5xx replies are never kept so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method != http.MethodPost || !guarded(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if err := g.serve(w, r, next); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if clientKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	fingerprint := fingerprintOf(body)

	userID, _ := UserIDFromContext(r.Context())
	key := g.store.IdempotencyKey(userID.String()+"|"+r.URL.Path, clientKey)

	prior, err := g.lookup(r.Context(), key)
	if err != nil {
		return err
	}
	if prior != nil {
		if prior.Fingerprint != fingerprint {
			return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
		}
		prior.replay(w)
		return nil
	}

	capture := &replyCapture{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(capture, r)
	if capture.status >= http.StatusInternalServerError {
		return nil
	}
	g.remember(r.Context(), key, storedReply{
		Status:      capture.status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		Fingerprint: fingerprint,
	})
	return nil
}

func (g *idempotencyGuard) lookup(ctx context.Context, key string) (*storedReply, error) {
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup failed")
	}
	var reply storedReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency record unreadable")
	}
	return &reply, nil
}

// remember is best effort: the write already happened, so a failure here only
// costs the client its replay.
func (g *idempotencyGuard) remember(ctx context.Context, key string, reply storedReply) {
	payload, err := json.Marshal(reply)
	if err == nil {
		_, err = g.store.SetNX(ctx, key, string(payload), g.ttl)
	}
	if err != nil {
		g.logg.Error(g.logg.WithField(ctx, "idempotency_key", key), "idempotency.store_failed", err)
	}
}

func (s *storedReply) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set("Idempotent-Replay", "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// guarded matches the raw request path; the chi route pattern is not complete
// yet while group middleware runs.
func guarded(method, path string) bool {
	if method != http.MethodPost {
		return false
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, route := range guardedWrites {
		if segmentsMatch(route, segments) {
			return true
		}
	}
	return false
}

func segmentsMatch(route, segments []string) bool {
	if len(route) != len(segments) {
		return false
	}
	for i, want := range route {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

type replyCapture struct {
	http.ResponseWriter
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (c *replyCapture) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *replyCapture) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
