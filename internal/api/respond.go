// Package api exposes the service over HTTP with gin.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/apperr"
)

// empty is the body of operations that return nothing.
var empty = gin.H{}

// writeError sends {"error": msg} with the status the error kind maps to.
// Internal errors are logged and their detail is not sent.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// pathID reads an integer path parameter.
func pathID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, apperr.Input("%s must be an integer", name)
	}
	return id, nil
}

// queryInt reads an integer query parameter, using def when absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Input("%s must be an integer", name)
	}
	return v, nil
}

// bind decodes the JSON body into req. Malformed bodies are input errors.
func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperr.Input("invalid request body: %v", err)
	}
	return nil
}
