package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bazzarnet/support-service/internal/config"
	apperrors "github.com/bazzarnet/support-service/pkg/util"
)

// SubmitRateLimiter bounds anonymous ticket submissions per client IP
// using a fixed redis window. When redis is unreachable the limiter
// fails open: losing rate limiting is preferable to losing tickets.
func SubmitRateLimiter(client *redis.Client, limit config.SubmitRateLimit, logger *zap.Logger) fiber.Handler {
	window := time.Duration(limit.WindowSec) * time.Second
	return func(c *fiber.Ctx) error {
		if client == nil || limit.MaxPerWindow <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("support:submit:%s", c.IP())
		count, err := client.Incr(c.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limit check failed; allowing request", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			client.Expire(c.Context(), key, window)
		}
		if count > int64(limit.MaxPerWindow) {
			return apperrors.NewDomainError("RATE_LIMITED",
				"too many support requests, please try again later",
				http.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}
