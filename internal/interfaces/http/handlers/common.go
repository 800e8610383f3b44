// Package handlers contains the gin HTTP handlers for the insight API.
package handlers

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geoinsight/geoinsight/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError renders err with the status its error code maps to.
// Unclassified errors are masked as internal.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{Code: string(code)}
	var ae *errors.AppError
	switch {
	case errors.IsServerError(code):
		// Server-side details stay in the logs.
		resp.Message = errors.DefaultMessageForCode(code)
	case stderrors.As(err, &ae):
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	default:
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

// queryInt parses an optional integer query parameter, 0 when absent.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidParam(fmt.Sprintf("%s must be an integer", name)).WithDetail(raw)
	}
	return v, nil
}

// queryList parses an optional comma-separated query parameter, nil when
// absent.
func queryList(c *gin.Context, name string) []string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// queryFloat parses an optional float query parameter, 0 when absent.
func queryFloat(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.InvalidParam(fmt.Sprintf("%s must be a number", name)).WithDetail(raw)
	}
	return v, nil
}
