package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

const rpcIDKey = "capgate.rpc.id"

// restError is the REST error body
type restError struct {
	Error *types.Error `json:"error"`
}

// markRPC makes ErrorTranslator render errors for this request as JSON-RPC
func markRPC(c *gin.Context, id any) {
	c.Set(rpcIDKey, rpcID{value: id})
}

type rpcID struct {
	value any
}

// ErrorTranslator renders the last error attached to the context.
// Non-gateway errors become INTERNAL_ERROR; stacks are logged, never sent.
func ErrorTranslator(logger *zap.Logger, exposeInternal bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		gwErr := types.Normalize(c.Errors.Last().Err)
		if gwErr.Code == types.CodeInternal {
			logger.Error("Internal error",
				zap.String("path", c.Request.URL.Path),
				zap.String("error", gwErr.Message),
				zap.Any("details", gwErr.Details),
				zap.String("stack", gwErr.Stack),
			)
		}
		public := gwErr.Public(exposeInternal)

		if marker, ok := c.Get(rpcIDKey); ok {
			c.JSON(http.StatusOK, newRPCError(public, marker.(rpcID).value))
			return
		}
		c.JSON(gwErr.Code.HTTPStatus(), restError{Error: public})
	}
}

// Recovery turns a handler panic into an INTERNAL_ERROR for ErrorTranslator
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		_ = c.Error(types.Internal(fmt.Errorf("panic: %v", recovered)))
		c.Abort()
	})
}
