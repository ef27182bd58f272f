// Package api exposes Engram's HTTP/JSON surface: health, capabilities,
// remember, recall, forget, and context/hydrate, per the transport contract.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/engram/engram/internal/memory"
)

// errorBody is the wire shape for every non-2xx response: `{error: <message>}`.
type errorBody struct {
	Error string `json:"error"`
}

func jsonOK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

func jsonError(c *gin.Context, status int, message string) {
	c.JSON(status, errorBody{Error: message})
}

// respondErr translates a memory-core error into the matching HTTP status:
// storage and embedding errors arrive as typed results, handlers translate
// them, never crash on a request-local error.
func respondErr(c *gin.Context, err error) {
	switch memory.KindOf(err) {
	case memory.InvalidArgument:
		jsonError(c, http.StatusBadRequest, err.Error())
	case memory.NotFound:
		jsonError(c, http.StatusNotFound, err.Error())
	case memory.FeatureDisabled:
		jsonError(c, http.StatusForbidden, err.Error())
	default:
		jsonError(c, http.StatusInternalServerError, err.Error())
	}
}
