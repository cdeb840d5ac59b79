package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/config"
)

// ResponseCache keeps successful GET responses in Redis.  Entries are keyed
// under a generation number; Invalidate bumps the generation, so every
// earlier entry becomes unreachable at once and expires on its own TTL.
// A response computed while a write is in flight is stored under the old
// generation and never served after the write.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache returns a cache.  A nil client or a disabled config gives
// a cache whose middlewares pass every request through.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func (rc *ResponseCache) generationKey() string { return rc.cfg.Prefix + ":gen" }

func (rc *ResponseCache) generation(ctx context.Context) (int64, error) {
	gen, err := rc.rdb.Get(ctx, rc.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// entryKey identifies a request by path and normalized query string.
func entryKey(prefix string, gen int64, r *http.Request) string {
	target := r.URL.Path
	if q := r.URL.Query(); len(q) > 0 {
		target += "?" + q.Encode()
	}
	sum := sha1.Sum([]byte(target))
	return prefix + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:])
}

// bodyRecorder tees the response body up to limit bytes.
type bodyRecorder struct {
	http.ResponseWriter
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if !br.overflow {
		if br.limit > 0 && br.buf.Len()+len(b) > br.limit {
			br.overflow = true
			br.buf.Reset()
		} else {
			br.buf.Write(b)
		}
	}
	return br.ResponseWriter.Write(b)
}

// Middleware serves cached GET responses and stores 200 responses on a miss.
// Redis failures degrade to an uncached request.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			ctx := req.Context()
			gen, err := rc.generation(ctx)
			if err != nil {
				log.WithError(err).Debug("cache: generation lookup failed")
				return next(c)
			}
			key := entryKey(rc.cfg.Prefix, gen, req)

			if raw, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, limit: rc.cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status != http.StatusOK || rec.overflow {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{
				Status:      http.StatusOK,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			storeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := rc.rdb.Set(storeCtx, key, payload, rc.cfg.TTL).Err(); err != nil {
				log.WithError(err).Debug("cache: store failed")
			}
			return nil
		}
	}
}

// Invalidate makes every cached response unreachable.
func (rc *ResponseCache) Invalidate(ctx context.Context) error {
	if !rc.enabled() {
		return nil
	}
	return rc.rdb.Incr(ctx, rc.generationKey()).Err()
}

// InvalidateOnWrite invalidates the cache after a handler responds with a
// 2xx status.
func (rc *ResponseCache) InvalidateOnWrite() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if status := c.Response().Status; err == nil && status >= 200 && status < 300 {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if ierr := rc.Invalidate(ctx); ierr != nil {
					log.WithError(ierr).Warn("cache: invalidate failed")
				}
			}
			return err
		}
	}
}
