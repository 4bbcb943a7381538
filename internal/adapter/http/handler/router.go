package handler

import (
	"sadad-payment-service/config"
	"sadad-payment-service/internal/adapter/http/middleware"
	"sadad-payment-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	BookingInitiation ports.InitiationService
	ProductInitiation ports.InitiationService
	BookingCallback   ports.CallbackService
	ProductCallback   ports.CallbackService
	PaymentQuery      ports.PaymentQueryService
	TokenSvc          ports.TokenService // nil = bearer validation disabled
	RateLimiter       ports.RateLimiter  // nil = rate limiting disabled
	RateLimit         config.RateLimitConfig
	HealthCheckers    []ports.HealthChecker
	AuditSvc          ports.AuditService // nil = audit logging disabled
	MaxBodyBytes      int64
	TrustedProxies    []string // nil = ClientIP is the TCP peer
	Logger            zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Callbacks are allow-listed by ClientIP, so forwarded headers only count from known proxies.
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Logger.Error().Err(err).Strs("trusted_proxies", deps.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Deep health check: PostgreSQL and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules(deps.RateLimit)
	noop := func(c *gin.Context) { c.Next() }

	// Helper: return rate limiter middleware if a store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil || !deps.RateLimit.Enabled {
			return noop
		}
		rule, ok := rules[group]
		if !ok || rule.Limit <= 0 || rule.Window <= 0 {
			return noop
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	auth := gin.HandlerFunc(noop)
	if deps.TokenSvc != nil {
		auth = middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	}

	paymentHandler := NewPaymentHandler(deps.BookingInitiation, deps.ProductInitiation, deps.PaymentQuery)
	bookingCallback := NewCallbackHandler(deps.BookingCallback, deps.Logger)
	productCallback := NewCallbackHandler(deps.ProductCallback, deps.Logger)

	sadad := r.Group("/api/v1/payments/sadad")
	{
		// Client-facing routes (bearer token when configured)
		sadad.POST("/booking/initiate", auth, rl("initiate_booking"), paymentHandler.InitiateBooking)
		sadad.POST("/product/initiate", auth, rl("initiate_product"), paymentHandler.InitiateProduct)
		sadad.GET("/:order_id", auth, rl("payment_status"), paymentHandler.GetStatus)

		// Gateway callbacks: authenticated by IP allow-list and checksum, never by token
		sadad.POST("/booking/callback", bookingCallback.Handle)
		sadad.GET("/booking/callback", bookingCallback.Handle)
		sadad.POST("/product/callback", productCallback.Handle)
		sadad.GET("/product/callback", productCallback.Handle)
	}

	return r
}
