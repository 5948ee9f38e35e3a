// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"rxpos/internal/core/apperror"
	appctx "rxpos/internal/core/context"
	"rxpos/pkg/logger"
)

// Recovery turns a handler panic into a 500. The panic unwinds past
// ErrorHandler, so the body is written here in the same shape. The stack goes
// to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"panic", r,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)

			appErr := apperror.NewInternal(fmt.Errorf("panic: %v", r))
			if rid := appctx.GetRequestID(ctx); rid != "" {
				appErr = appErr.WithDetail("request_id", rid)
			}
			_ = c.Error(appErr)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
		}()
		c.Next()
	}
}
