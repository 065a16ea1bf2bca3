package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketledger/internal/common"
	"github.com/dmitrijs2005/pocketledger/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

const (
	requestIDKey = "request_id"
	userKey      = "user"
)

// requestID tags every request with an id, reusing X-Request-ID when sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.log.Error(c.Request.Context(), "panic recovered",
			"path", c.Request.URL.Path,
			"panic", recovered,
			"request_id", c.GetString(requestIDKey),
		)
		c.AbortWithStatusJSON(500, errorResponse{Error: errorBody{Code: 500, Message: common.ErrInternal.Code}})
	})
}

// tokenFromRequest looks for the session token in the query string, then a
// Bearer Authorization header, then a "token" field of a JSON body.
func tokenFromRequest(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	if h := c.GetHeader("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return ""
	}
	var body struct {
		Token string `json:"token"`
	}
	// ShouldBindBodyWith caches the body so handlers can bind it again.
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}
	return body.Token
}

func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.auth.Authenticate(c.Request.Context(), tokenFromRequest(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.auth.RequireAdmin(c.Request.Context(), tokenFromRequest(c))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	u, _ := c.Get(userKey)
	user, _ := u.(*models.User)
	return user
}
