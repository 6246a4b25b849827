package server

import (
	"context"
	"net/http"
	"time"

	"github.com/checkoutplus/cashback/internal/config"
	"github.com/checkoutplus/cashback/internal/dispatcher"
	rewarddomain "github.com/checkoutplus/cashback/internal/reward/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	rewardSvc  rewarddomain.Service
	rewardRepo rewarddomain.Repository
	dispatcher *dispatcher.Dispatcher
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	RewardSvc  rewarddomain.Service
	RewardRepo rewarddomain.Repository
	Dispatcher *dispatcher.Dispatcher
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("server"),
		rewardSvc:  p.RewardSvc,
		rewardRepo: p.RewardRepo,
		dispatcher: p.Dispatcher,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/orders/create", s.HandleOrderCreated)
}

func (s *Server) registerAPIRoutes() {
	s.engine.POST("/api/process-cashback", s.HandleProcessCashback)
	// GET kept for manual operational testing; behaves identically.
	s.engine.GET("/api/process-cashback", s.HandleProcessCashback)
	s.engine.GET("/api/rewards", s.HandleListRewards)
}
