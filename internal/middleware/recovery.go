package middleware

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/picketer/pkg/errors"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/response"
)

// Recovery turns a handler panic into a 500 envelope without leaking the
// panic value. http.ErrAbortHandler is re-raised so net/http drops the
// connection as it expects.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && stderrors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.WithModule("http").Error("handler panicked",
				zap.String("request_id", c.GetString(CtxRequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, errors.ErrInternalServer.WithInternal(fmt.Errorf("panic: %v", rec)))
			c.Abort()
		}()
		c.Next()
	}
}

func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.ErrNotFound.WithMessage(fmt.Sprintf("Route %s %s not found", c.Request.Method, c.Request.URL.Path)))
}
