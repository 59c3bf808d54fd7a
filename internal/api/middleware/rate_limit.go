package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Seanzed08/SmartLab/pkg/redis"
	"github.com/Seanzed08/SmartLab/pkg/response"
)

// RateLimit 基于 Redis 固定窗口的速率限制中间件
// 刷卡终端按 reader_id 计数，其余请求按客户端 IP 计数
// rdb 为 nil 时降级放行（与 JWTAuth 策略一致）
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), rateLimitKey(c), limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	subject := c.ClientIP()
	if v, ok := c.Get(CtxReaderID); ok {
		if readerID, _ := v.(string); readerID != "" {
			subject = "reader:" + readerID
		}
	}
	return fmt.Sprintf("rate_limit:%s:%s", subject, c.FullPath())
}
