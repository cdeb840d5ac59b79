package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/railway-reservation/internal/config"
)

// gcraScript implements the generic cell rate algorithm.  KEYS[1] holds the
// theoretical arrival time in milliseconds.  ARGV: now_ms, every_ms, burst.
// Returns {allowed, remaining, retry_after_ms}.
var gcraScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local every = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local tat = tonumber(redis.call('GET', KEYS[1]))
if not tat or tat < now then
  tat = now
end
local new_tat = tat + every
local window = every * burst
if new_tat - now > window then
  return {0, 0, new_tat - now - window}
end
redis.call('SET', KEYS[1], new_tat, 'PX', new_tat - now)
return {1, math.floor((window - (new_tat - now)) / every), 0}
`)

// NewTokenBucket limits requests per caller and route.  Authenticated
// callers are keyed by username, anonymous ones by client IP.  Redis errors
// let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	every := cfg.Every.Milliseconds()
	limit := strconv.Itoa(cfg.Burst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg.Prefix, c)
			res, err := gcraScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), every, cfg.Burst).Int64Slice()
			if err != nil || len(res) != 3 {
				log.WithField("key", key).WithError(err).Warn("ratelimit: script failed, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if res[0] == 1 {
				return next(c)
			}
			secs := retryAfterSeconds(res[2])
			h.Set("Retry-After", strconv.Itoa(secs))
			log.WithFields(log.Fields{"key": key, "retry_after": secs}).Debug("ratelimit: blocked")
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// retryAfterSeconds rounds up to whole seconds, minimum 1.
func retryAfterSeconds(ms int64) int {
	if ms <= 0 {
		return 1
	}
	return int((ms + 999) / 1000)
}

func rateKey(prefix string, c echo.Context) string {
	who := "user:" + UserID(c)
	if UserID(c) == "" {
		who = "ip:" + c.RealIP()
	}
	return prefix + ":" + who + ":" + c.Request().Method + " " + c.Path()
}
