package httpapi

import (
	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respondError writes err in the {"error":{code,message}} envelope. The
// underlying cause is only included in development mode.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := common.KindOf(err)
	status := kind.HTTPStatus()

	body := errorBody{Code: status, Message: common.CodeOf(err)}
	if h.development {
		body.Detail = err.Error()
	}
	if kind == common.KindDependency {
		h.log.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}
