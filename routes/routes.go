package routes

import (
	"net/http"

	"github.com/Govind-619/checkout-core/controllers"
	"github.com/Govind-619/checkout-core/metrics"
	"github.com/Govind-619/checkout-core/middleware"
	"github.com/Govind-619/checkout-core/tracing"
	"github.com/Govind-619/checkout-core/utils"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Options configures SetupRouter.
type Options struct {
	SessionSecret    string
	JWTSecret        string
	InternalAPIToken string
	SecureCookies    bool
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(h *controllers.Handler, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(tracing.GinMiddleware(utils.AppName))
	router.Use(utils.LoggerMiddleware())
	router.Use(metrics.GinMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/health", controllers.Health)
	router.GET("/metrics", metrics.Handler())

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		MaxAge:   60 * 60 * 24, // 1 day
		Path:     "/",
		Secure:   opts.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	api := router.Group("/v1")
	{
		initShopperRoutes(api, h, store, opts)
		initInternalRoutes(api, h, opts)
		initAdminRoutes(api, h, opts)
	}

	return router
}

func initShopperRoutes(api *gin.RouterGroup, h *controllers.Handler, store cookie.Store, opts Options) {
	shopper := api.Group("")
	shopper.Use(sessions.Sessions("checkout", store))
	shopper.Use(middleware.HolderMiddleware(opts.JWTSecret))
	{
		shopper.POST("/reserve", h.Reserve)
		shopper.DELETE("/reserve", h.ReleaseReservation)
		shopper.GET("/reserve/remaining", h.TimeRemaining)
		shopper.POST("/coupon/validate", h.ValidateCoupon)
	}

	api.GET("/inventory/:unit_id/available", h.Available)
	api.POST("/pricing/compute", h.ComputePricing)
}

func initInternalRoutes(api *gin.RouterGroup, h *controllers.Handler, opts Options) {
	internal := api.Group("/internal")
	internal.Use(middleware.InternalTokenMiddleware(opts.InternalAPIToken))
	{
		internal.POST("/coupon/redeem", h.RedeemCoupon)
		internal.POST("/reserve/confirm", h.ConfirmReservation)
		internal.POST("/checkout/confirm", h.ConfirmCheckout)
	}
}

func initAdminRoutes(api *gin.RouterGroup, h *controllers.Handler, opts Options) {
	admin := api.Group("/admin")
	admin.Use(middleware.InternalTokenMiddleware(opts.InternalAPIToken))
	{
		admin.POST("/sweep", h.RunSweep)
		admin.PUT("/inventory/:unit_id", h.Restock)
		admin.GET("/coupons/abuse", h.CouponAbuse)
		admin.GET("/coupons/abuse/export", h.ExportCouponAbuse)
		admin.GET("/coupons/abuse/export/pdf", h.ExportCouponAbusePDF)
	}
}
