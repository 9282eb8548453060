package server

import (
	"context"
	"net/http"

	"boxflow/internal/auth"
	"boxflow/internal/checkin"
	"boxflow/internal/class"
	"boxflow/internal/config"
	"boxflow/internal/email"
	"boxflow/internal/member"
	"boxflow/internal/payment"
	"boxflow/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
}

func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	memberHandler := member.NewHandler(member.NewService(member.NewRepository(db), cfg.JWTSecret))
	classHandler := class.NewHandler(class.NewService(class.NewRepository(db)))
	checkinService := checkin.NewService(
		checkin.NewRepository(db),
		class.NewRepository(db),
		member.NewRepository(db),
		subscription.NewRepository(db),
		payment.NewRepository(db),
		emailService,
	)
	checkinHandler := checkin.NewHandler(checkinService, checkin.NewAnalyticsRepository(db))
	subscriptionHandler := subscription.NewHandler(db, emailService)
	paymentHandler := payment.NewHandler(db)

	public := router.Group("/auth")
	{
		public.POST("/register", memberHandler.Register)
		public.POST("/login", memberHandler.Login)
		public.POST("/refresh", memberHandler.RefreshToken)
	}
	router.GET("/plans", subscriptionHandler.ListPlans)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", memberHandler.GetMe)

		protected.GET("/classes", classHandler.GetSchedule)
		protected.GET("/classes/:classID", classHandler.GetClass)
		protected.GET("/classes/:classID/availability", checkinHandler.VerifyAvailability)
		protected.POST("/classes/:classID/checkin", checkinHandler.RequestCheckIn)
		protected.DELETE("/classes/:classID/checkin", checkinHandler.CancelCheckIn)
		protected.POST("/checkins/change", checkinHandler.ChangeCheckIn)
		protected.GET("/checkins", checkinHandler.ListMyCheckIns)

		protected.GET("/subscriptions", subscriptionHandler.ListMy)
		protected.POST("/subscriptions", subscriptionHandler.Create)

		protected.GET("/account", paymentHandler.GetAccount)
		protected.POST("/account/topup", paymentHandler.TopUp)
		protected.GET("/payments", paymentHandler.ListTransactions)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/classes", classHandler.CreateClass)
		admin.GET("/classes/:classID/roster", checkinHandler.ListClassRoster)
		admin.GET("/analytics/checkins", checkinHandler.GetCheckInAnalytics)
		admin.GET("/members/:memberID/subscriptions", subscriptionHandler.ListForMember)
	}

	router.GET("/health", Health)
	router.GET("/test-email", TestEmail(emailService))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
