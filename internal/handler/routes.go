package handler

import (
	"locarto/internal/middleware"
	"locarto/internal/model"
	"locarto/prometheus"

	"github.com/labstack/echo/v4"
)

// Register mounts the ops endpoints at the root and the marketplace API under /api.
// csrf may be nil when CSRF protection is disabled.
func Register(e *echo.Echo, h *Handler, auth *middleware.Auth, loginLimiter *middleware.RateLimiter, csrf echo.MiddlewareFunc) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	var apiMiddleware []echo.MiddlewareFunc
	if csrf != nil {
		apiMiddleware = append(apiMiddleware, csrf)
	}
	api := e.Group("/api", apiMiddleware...)
	api.GET("/csrf", h.CSRFToken)

	consumer := auth.RequireRole(model.RoleConsumer)
	vendor := auth.RequireRole(model.RoleVendor)
	admin := auth.RequireRole(model.RoleAdmin)

	// Auth and uploads are identical per role
	for _, role := range model.Roles() {
		gate := auth.RequireRole(role)
		group := api.Group("/" + string(role))

		group.POST("/auth/signup", h.Signup(role))
		login := h.Login(role)
		if loginLimiter != nil {
			group.POST("/auth/login", login, loginLimiter.Middleware)
		} else {
			group.POST("/auth/login", login)
		}
		group.POST("/auth/logout", h.Logout)
		group.GET("/auth/check", withActor(h.Check), gate)
		group.DELETE("/auth/account", withActor(h.DeleteAccount), gate)
		group.POST("/upload/url", withActor(h.UploadURL), gate)
	}

	// Consumer
	c := api.Group("/consumer")
	c.GET("/product/", h.ListPublicProducts)
	c.GET("/product/:id", h.GetPublicProduct)
	c.POST("/order/add", withActor(h.PlaceOrder), consumer)
	c.GET("/order/", withActor(h.ListOrders), consumer)
	c.GET("/order/:id", withActor(h.GetOrder), consumer)
	c.PUT("/order/:id/cancel", withActor(h.CancelOrder), consumer)
	c.PUT("/order/:id/support", withActor(h.UpdateSupportStatus), consumer)
	c.GET("/order/:id/track", withActor(h.Track), consumer)
	c.POST("/transaction/add", withActor(h.InitiatePayment), consumer)
	c.GET("/transaction/", withActor(h.ListTransactions), consumer)
	c.GET("/review/:productId", h.GetReviews)
	c.POST("/review/:productId", withActor(h.AddReview), consumer)
	c.DELETE("/review/:id", withActor(h.DeleteReview), consumer)

	// Vendor
	v := api.Group("/vendor")
	v.GET("/product/", withActor(h.ListVendorProducts), vendor)
	v.POST("/product/add", withActor(h.CreateProduct), vendor)
	v.PUT("/product/:id", withActor(h.UpdateProduct), vendor)
	v.DELETE("/product/:id", withActor(h.DeleteProduct), vendor)
	v.GET("/order/", withActor(h.ListOrders), vendor)
	v.GET("/order/:id", withActor(h.GetOrder), vendor)
	v.PUT("/order/:id", withActor(h.UpdateOrderStatus), vendor)
	v.PUT("/order/:id/support", withActor(h.UpdateSupportStatus), vendor)
	v.POST("/order/:id/ship", withActor(h.ShipOrder), vendor)
	v.GET("/order/:id/track", withActor(h.Track), vendor)
	v.GET("/order/:id/label", withActor(h.Label), vendor)
	v.GET("/shipping/serviceability", withActor(h.Serviceability), vendor)
	v.GET("/transaction/", withActor(h.ListTransactions), vendor)
	v.PUT("/review/reply/:id", withActor(h.ReplyToReview), vendor)
	v.DELETE("/review/reply/:id", withActor(h.DeleteReply), vendor)
	v.DELETE("/review/delete/:id", withActor(h.DeleteReview), auth.RequireRole(model.RoleVendor, model.RoleAdmin))

	// Admin
	a := api.Group("/admin")
	a.DELETE("/product/:id", withActor(h.DeleteProduct), admin)
	a.GET("/order/", withActor(h.ListOrders), admin)
	a.GET("/order/:id", withActor(h.GetOrder), admin)
	a.PUT("/order/:id/cancel", withActor(h.CancelOrder), admin)
	a.PUT("/order/:id/support", withActor(h.UpdateSupportStatus), admin)
	a.GET("/transaction/", withActor(h.ListTransactions), admin)
	a.DELETE("/review/:id", withActor(h.DeleteReview), admin)

	// The gateway cannot carry a CSRF token; the ledger checks its signature instead
	e.POST("/api/payment/callback", h.PaymentCallback)
}
