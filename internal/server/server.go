package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/smallbiznis/receptionist/internal/billing/domain"
	businessdomain "github.com/smallbiznis/receptionist/internal/business/domain"
	calendardomain "github.com/smallbiznis/receptionist/internal/calendar/domain"
	calldomain "github.com/smallbiznis/receptionist/internal/call/domain"
	"github.com/smallbiznis/receptionist/internal/config"
	"github.com/smallbiznis/receptionist/internal/identity"
	"github.com/smallbiznis/receptionist/internal/observability"
	obsmiddleware "github.com/smallbiznis/receptionist/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/receptionist/internal/observability/metrics"
	obstracing "github.com/smallbiznis/receptionist/internal/observability/tracing"
	phonedomain "github.com/smallbiznis/receptionist/internal/phonenumber/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewVerifier),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// NewVerifier validates dashboard tokens signed with AUTH_JWT_SECRET.
func NewVerifier(cfg config.Config, log *zap.Logger) *identity.Verifier {
	if cfg.AuthJWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET is empty, every authenticated request will be rejected")
	}
	return identity.NewVerifier(cfg.AuthJWTSecret)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	plans       *config.PlanCatalogHolder
	verifier    *identity.Verifier
	businessSvc businessdomain.Service
	numberSvc   phonedomain.Service
	billingSvc  billingdomain.Service
	calendarSvc calendardomain.Service
	callSvc     calldomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Plans       *config.PlanCatalogHolder `optional:"true"`
	Verifier    *identity.Verifier
	BusinessSvc businessdomain.Service
	NumberSvc   phonedomain.Service
	BillingSvc  billingdomain.Service
	CalendarSvc calendardomain.Service
	CallSvc     calldomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		plans:       p.Plans,
		verifier:    p.Verifier,
		businessSvc: p.BusinessSvc,
		numberSvc:   p.NumberSvc,
		billingSvc:  p.BillingSvc,
		calendarSvc: p.CalendarSvc,
		callSvc:     p.CallSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	s.registerAPIRoutes()
	s.registerOAuthRoutes()
	s.registerTwilioRoutes()
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Stripe signs the webhook body; it never carries a dashboard token.
	api.POST("/stripe/webhook", s.StripeWebhook)

	authed := api.Group("", s.AuthRequired())

	// -------- Business --------
	authed.POST("/business", s.CreateBusiness)
	authed.GET("/business/me", s.GetMyBusiness)
	authed.PUT("/business/me", s.UpdateMyBusiness)
	authed.POST("/business/receptionist/toggle", s.ToggleReceptionist)
	authed.GET("/business/:id", s.GetBusinessByID)
	authed.PUT("/business/:id", s.UpdateBusiness)
	authed.PATCH("/business/:id/status", s.UpdateBusinessStatus)

	// -------- Calls & contacts --------
	authed.GET("/business/calls", s.ListCalls)
	authed.GET("/contacts/search", s.SearchContact)
	authed.POST("/contacts", s.UpsertContact)

	// -------- Phone numbers --------
	authed.GET("/numbers/search", s.SearchNumbers)
	authed.POST("/numbers/buy", s.PurchaseNumber)
	authed.POST("/numbers/release", s.ReleaseNumber)

	// -------- Billing --------
	authed.POST("/stripe/checkout", s.CreateCheckoutSession)
	authed.POST("/stripe/portal", s.CreatePortalSession)
}

func (s *Server) registerOAuthRoutes() {
	oauth := s.engine.Group("/oauth/google")

	// Start and callback are browser navigations and carry no bearer token.
	oauth.GET("/start", s.StartCalendarAuthorization)
	oauth.GET("/callback", s.CalendarCallback)
	oauth.GET("/status", s.CalendarStatus)
	oauth.POST("/disconnect", s.AuthRequired(), s.DisconnectCalendar)
}

func (s *Server) registerTwilioRoutes() {
	tw := s.engine.Group("/twilio")

	// Twilio signs callbacks with the account auth token.
	tw.POST("/call-status", s.TwilioCallStatus)
	tw.POST("/recording-status", s.TwilioRecordingStatus)
}
