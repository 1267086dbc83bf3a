package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayly/internal/infra/config"
	"stayly/internal/infra/obs"
)

type AuthHTTP interface {
	RequestCode(c *gin.Context)
	Verify(c *gin.Context)
	Me(c *gin.Context)
}

type PropertyHTTP interface {
	Search(c *gin.Context)
	Get(c *gin.Context)
	ListForHost(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	SetPricing(c *gin.Context)
	AddWindow(c *gin.Context)
	RemoveWindow(c *gin.Context)
	BlockDates(c *gin.Context)
	UnblockDates(c *gin.Context)
	Publish(c *gin.Context)
	Unlist(c *gin.Context)
	UploadPhoto(c *gin.Context)
}

type BookingHTTP interface {
	Quote(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	RecordPayment(c *gin.Context)
	ListForGuest(c *gin.Context)
	ListForHost(c *gin.Context)
	Confirm(c *gin.Context)
	Reject(c *gin.Context)
	Complete(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Properties     PropertyHTTP
	Bookings       BookingHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without binding it to an address.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/code", h.Auth.RequestCode)
		api.POST("/auth/verify", h.Auth.Verify)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Properties != nil {
		api.GET("/properties", h.Properties.Search)
		api.GET("/properties/:id", h.Properties.Get)

		hostGroup := api.Group("/host/properties")
		hostGroup.GET("", h.Properties.ListForHost)
		hostGroup.POST("", h.Properties.Create)
		hostGroup.PUT("/:id", h.Properties.Update)
		hostGroup.PUT("/:id/pricing", h.Properties.SetPricing)
		hostGroup.POST("/:id/windows", h.Properties.AddWindow)
		hostGroup.DELETE("/:id/windows", h.Properties.RemoveWindow)
		hostGroup.POST("/:id/blocks", h.Properties.BlockDates)
		hostGroup.DELETE("/:id/blocks/:ref", h.Properties.UnblockDates)
		hostGroup.POST("/:id/publish", h.Properties.Publish)
		hostGroup.POST("/:id/unlist", h.Properties.Unlist)
		hostGroup.POST("/:id/photos", h.Properties.UploadPhoto)
	}
	if h.Bookings != nil {
		api.GET("/properties/:id/quote", h.Bookings.Quote)
		api.POST("/bookings", h.Bookings.Create)
		api.GET("/bookings/:id", h.Bookings.Get)
		api.POST("/bookings/:id/cancel", h.Bookings.Cancel)
		api.POST("/bookings/:id/payment", h.Bookings.RecordPayment)
		api.GET("/me/bookings", h.Bookings.ListForGuest)

		hostGroup := api.Group("/host/bookings")
		hostGroup.GET("", h.Bookings.ListForHost)
		hostGroup.POST("/:id/confirm", h.Bookings.Confirm)
		hostGroup.POST("/:id/reject", h.Bookings.Reject)
		hostGroup.POST("/:id/complete", h.Bookings.Complete)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", obs.RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
