package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/profile-sync/pkg/response"
)

const rateKeyPrefix = "profile-sync:rl:"

// KeyFunc builds the counter key for a request.
type KeyFunc func(c *gin.Context) string

// AllowFunc reports whether a request bypasses the limit.
type AllowFunc func(c *gin.Context) bool

// KeyByIP limits per client address.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return rateKeyPrefix + "ip:" + clientIP(c)
	}
}

// KeyByIPAndPath limits per client address and route template.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		return rateKeyPrefix + "path:" + route + ":ip:" + clientIP(c)
	}
}

// KeyByUserID limits per signed-in user; anonymous callers fall back to their
// address.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetString(CtxUserIDKey); uid != "" {
			return rateKeyPrefix + "user:" + uid
		}
		return rateKeyPrefix + "user:anon:ip:" + clientIP(c)
	}
}

// incrExpire bumps the counter and starts the window on the first hit.
var incrExpire = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimit is a fixed-window limiter backed by Redis. It fails open when Redis
// errors and is a no-op when rdb is nil.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}
		count, ttl, err := hit(c, rdb, keyFn(c), window)
		if err != nil {
			c.Next()
			return
		}
		reset := int(ttl.Round(time.Second) / time.Second)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(limit-count, 0)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))
		if count > limit {
			if reset > 0 {
				c.Header("Retry-After", strconv.Itoa(reset))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func hit(c *gin.Context, rdb *redis.Client, key string, window time.Duration) (int, time.Duration, error) {
	vals, err := incrExpire.Run(c.Request.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(vals) != 2 {
		return 0, 0, err
	}
	ttl := time.Duration(vals[1]) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}
	return int(vals[0]), ttl, nil
}
