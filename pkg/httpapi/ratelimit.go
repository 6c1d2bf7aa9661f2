package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"example.com/credit-saga/pkg/logger"
)

// fixedWindow увеличивает счётчик и выставляет TTL на первом запросе окна.
var fixedWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter ограничивает число запросов с одного IP в окне.
// Счётчики общие для всех инстансов сервиса (Redis).
type RateLimiter struct {
	redis  redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

// RateLimitConfig - конфигурация rate limiter.
type RateLimitConfig struct {
	Redis   redis.Scripter
	Service string        // префикс ключей
	Limit   int           // по умолчанию 100
	Window  time.Duration // по умолчанию 1 минута
}

// NewRateLimiter создаёт rate limiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimiter{
		redis:  cfg.Redis,
		prefix: "rate:" + cfg.Service + ":",
		limit:  cfg.Limit,
		window: cfg.Window,
	}
}

// Handle возвращает middleware. При недоступности Redis запрос пропускается.
func (m *RateLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())
		clientIP := c.ClientIP()

		count, err := fixedWindow.Run(c.Request.Context(), m.redis, []string{m.prefix + clientIP}, int(m.window.Seconds())).Int()
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка проверки rate limit")
			c.Next()
			return
		}

		remaining := m.limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > m.limit {
			log.Warn().Str("client_ip", clientIP).Int("limit", m.limit).Msg("Rate limit превышен")

			seconds := int(m.window.Seconds())
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: fmt.Sprintf("Превышен лимит запросов. Попробуйте через %d секунд", seconds),
			})
			return
		}

		c.Next()
	}
}
