package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	behovdomain "github.com/openytelse/regelport/internal/behov/domain"
	"github.com/openytelse/regelport/internal/config"
	"github.com/openytelse/regelport/internal/lovverk"
	obslogger "github.com/openytelse/regelport/internal/observability/logger"
	obstracing "github.com/openytelse/regelport/internal/observability/tracing"
	"github.com/openytelse/regelport/internal/regelbus"
	subsumsjondomain "github.com/openytelse/regelport/internal/subsumsjon/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(registry *prometheus.Registry) *gin.Engine {
	return NewEngine(registry)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	bus          *regelbus.Producer
	behovSvc     behovdomain.Service
	subsumsjoner subsumsjondomain.Service
	lovverkSvc   lovverk.Service
	log          *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Bus        *regelbus.Producer
	BehovSvc   behovdomain.Service
	SubsumSvc  subsumsjondomain.Service
	LovverkSvc lovverk.Service
	Log        *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		bus:          p.Bus,
		behovSvc:     p.BehovSvc,
		subsumsjoner: p.SubsumSvc,
		lovverkSvc:   p.LovverkSvc,
		log:          p.Log.Named("server"),
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.Health)

	behov := s.engine.Group("/behov")
	{
		behov.POST("", s.OpprettBehov)
		behov.GET("/:behovId/status", s.BehovStatus)
	}

	subsumsjon := s.engine.Group("/subsumsjon")
	{
		subsumsjon.GET("/:behovId", s.GetSubsumsjon)
		subsumsjon.GET("/result/:subsumsjonsId", s.GetSubsumsjonByResult)
	}

	s.engine.POST("/lovverk/vurdering/minsteinntekt", s.VurderMinsteinntekt)
}
