package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skillbase/skillbase/internal/config"
	"github.com/skillbase/skillbase/internal/metrics"
	purchasedomain "github.com/skillbase/skillbase/internal/purchase/domain"
	"github.com/skillbase/skillbase/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(m *metrics.Metrics) *gin.Engine {
	return NewEngine(m)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	purchaseSvc     purchasedomain.Service
	checkoutLimiter *ratelimit.CheckoutLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	PurchaseSvc     purchasedomain.Service
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		genID:           p.GenID,
		purchaseSvc:     p.PurchaseSvc,
		checkoutLimiter: p.CheckoutLimiter,
	}

	svc.registerPaymentRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPaymentRoutes() {
	payments := s.engine.Group("/api/payments")

	// Webhook authentication is the provider signature, not a user token.
	payments.POST("/webhook", s.HandlePaymentWebhook)

	payments.POST("/checkout-session", s.UserAuthRequired(), s.CheckoutRateLimit(), s.CreateCheckoutSession)
	payments.POST("/orders", s.UserAuthRequired(), s.CheckoutRateLimit(), s.CreateOrder)
	payments.POST("/orders/verify", s.UserAuthRequired(), s.VerifyOrderPayment)
	payments.GET("/courses/:courseId/status", s.UserAuthRequired(), s.GetPurchaseStatus)
	payments.GET("/purchased-courses", s.UserAuthRequired(), s.ListPurchasedCourses)
	payments.POST("/purchases/:reference/refund", s.UserAuthRequired(), s.RefundPurchase)
}
