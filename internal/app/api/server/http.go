package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/paymint/paymint/internal/app/api/handlers"
	mw "github.com/paymint/paymint/internal/app/api/middleware"
	"github.com/paymint/paymint/internal/app/service/account"
	notificationlog "github.com/paymint/paymint/internal/app/service/notification_log"
	"github.com/paymint/paymint/internal/app/service/payment"
	cfgpkg "github.com/paymint/paymint/pkg/config"
	"github.com/paymint/paymint/pkg/metrics"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORS)))
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func corsConfig(c cfgpkg.CORSConfig) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = append(cc.AllowHeaders, mw.APIKeyHeader, mw.RequestIDHeader)
	cc.ExposeHeaders = []string{mw.RequestIDHeader}
	if len(c.AllowedOrigins) == 0 || (len(c.AllowedOrigins) == 1 && c.AllowedOrigins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}

func newPrometheus(cfg *cfgpkg.Config, log *zap.SugaredLogger) *metrics.Prometheus {
	p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
		ListenAddress: cfg.MetricsAddr,
		Logger:        log,
	})
	metrics.RegisterBusiness(prometheus.DefaultRegisterer, log)
	return p
}

type routeDeps struct {
	fx.In

	Engine    *gin.Engine
	Log       *zap.SugaredLogger
	Config    *cfgpkg.Config
	Prom      *metrics.Prometheus
	Accounts  *account.Service
	Payments  *payment.Service
	Callbacks *notificationlog.Service
}

func registerRoutes(d routeDeps) {
	r, log := d.Engine, d.Log
	if d.Config.MetricsAddr != "" {
		d.Prom.Use(r)
	}

	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)

	api := r.Group("/api")
	api.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterAuthRoutes(api.Group("/auth"), d.Accounts, log)

	ph := handlers.NewPaymentHandler(d.Payments, d.Callbacks, log, d.Config.BaseURL)
	handlers.RegisterPaymentRoutes(api.Group("/payments"), ph, d.Accounts, d.Accounts)
	handlers.RegisterPageRoutes(pub, ph)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	appendServerHook(lc, log, "HTTP", srv)
}

func runMetricsServer(lc fx.Lifecycle, log *zap.SugaredLogger, p *metrics.Prometheus) {
	srv := p.Server()
	if srv == nil {
		log.Infow("metrics listener disabled")
		return
	}
	appendServerHook(lc, log, "metrics", srv)
}

func appendServerHook(lc fx.Lifecycle, log *zap.SugaredLogger, name string, srv *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting "+name+" server", "addr", srv.Addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("%s server error: %v", name, err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping " + name + " server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(newPrometheus),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
	fx.Invoke(runMetricsServer),
)
