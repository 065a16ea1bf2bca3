package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	if !h.development && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(h.recovery())
	router.Use(h.requestLogger())

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/", h.root)

	authGroup := router.Group("/auth")
	authGroup.POST("/getToken", h.getToken)
	authGroup.POST("/revoke", h.requireUser(), h.revoke)

	user := router.Group("/user")
	user.POST("/new", h.newUser)
	user.GET("/confirmEmail", h.confirmEmail)
	user.POST("/confirmEmail", h.confirmEmail)

	authed := user.Group("", h.requireUser())
	authed.GET("/settings", h.getSettings)
	authed.POST("/settings", h.applySettings)
	authed.GET("/balance", h.balance)
	authed.GET("/transactions", h.transactions)
	authed.POST("/send", h.send)
	authed.POST("/changePassword", h.changePassword)

	admin := router.Group("/admin", h.requireAdmin())
	admin.POST("/addMoney", h.addMoney)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: errorBody{Code: http.StatusNotFound, Message: "NotFound"}})
	})

	return router
}
