package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/needvox_server/internal/pkg/response"
)

// RequestLogger 每个请求一条访问日志
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if sess, ok := GetSession(c); ok {
			fields = append(fields, zap.String("session_id", sess.ID))
		}
		if len(c.Errors) > 0 {
			logger.Warn("request", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("request", fields...)
	}
}

// Recovery 捕获 panic，返回统一的服务器错误
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
				)
				response.ServerError(c, "")
				c.Abort()
			}
		}()
		c.Next()
	}
}
