package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/teshub/teshub-api/api/swagger"
	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/handler"
	"github.com/teshub/teshub-api/internal/middleware"
	"github.com/teshub/teshub-api/internal/models"
	"github.com/teshub/teshub-api/internal/repository"
	"github.com/teshub/teshub-api/internal/service"
	"github.com/teshub/teshub-api/pkg/cache"
	"github.com/teshub/teshub-api/pkg/config"
	"github.com/teshub/teshub-api/pkg/database"
	"github.com/teshub/teshub-api/pkg/export"
	"github.com/teshub/teshub-api/pkg/logger"
	"github.com/teshub/teshub-api/pkg/mailer"
	corsmiddleware "github.com/teshub/teshub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/teshub/teshub-api/pkg/middleware/requestid"
	"github.com/teshub/teshub-api/pkg/storage"
)

// @title TesHub API
// @version 1.0.0
// @description Backend for the TesHub thesis and publication sharing network
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidations()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, search results will not be cached", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("uploads directory unavailable", "error", err)
	}

	var sender mailer.Sender
	if smtp, err := mailer.NewSMTP(cfg.Mail); err != nil {
		logr.Sugar().Warnw("smtp not configured, mail will be logged only", "error", err)
		sender = &mailer.LogSender{Logger: logr}
	} else {
		sender = smtp
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsService := service.NewMetricsService()
	mailService := service.NewMailService(sender, cfg.Mail.Workers, metricsService, logr)
	mailService.Start(ctx)
	defer mailService.Stop()

	userRepo := repository.NewUserRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	advisoryRepo := repository.NewAdvisoryRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	eventRepo := repository.NewEventRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authService := service.NewAuthService(userRepo, verificationRepo, mailService, logr, service.JWTConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	userService := service.NewUserService(userRepo, interestRepo, socialRepo, verificationRepo, uploads, logr)
	advisoryService := service.NewAdvisoryService(advisoryRepo, userRepo, logr)
	reviewService := service.NewReviewService(reviewRepo, advisoryRepo, publicationRepo, export.NewPDFExporter(), cacheRepo, logr)
	publicationService := service.NewPublicationService(publicationRepo, userRepo, uploads, export.NewCSVExporter(), cacheRepo, logr)
	eventService := service.NewEventService(eventRepo, userRepo, uploads, cacheRepo, logr)
	searchService := service.NewSearchService(searchRepo, cacheRepo, cfg.Search.CacheTTL, metricsService, logr)
	socialService := service.NewSocialService(socialRepo, userRepo, logr)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	advisoryHandler := handler.NewAdvisoryHandler(advisoryService)
	reviewHandler := handler.NewReviewHandler(reviewService)
	publicationHandler := handler.NewPublicationHandler(publicationService, uploads)
	eventHandler := handler.NewEventHandler(eventService)
	searchHandler := handler.NewSearchHandler(searchService, metricsService)
	socialHandler := handler.NewSocialHandler(socialService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Config{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/registro", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/recuperar", authHandler.Recover)
		auth.POST("/restablecer", authHandler.ResetPassword)
	}

	private := api.Group("")
	private.Use(middleware.JWT(authService))
	{
		private.PUT("/auth/contrasena", authHandler.ChangePassword)
		private.POST("/auth/correo/codigo", authHandler.RequestEmailCode)

		private.GET("/usuarios/me", userHandler.Me)
		private.PUT("/usuarios/me", userHandler.UpdateProfile)
		private.DELETE("/usuarios/me", userHandler.Deactivate)
		private.PUT("/usuarios/me/avatar", userHandler.UpdateAvatar)
		private.PUT("/usuarios/me/correo", userHandler.UpdateEmail)
		private.PUT("/usuarios/me/intereses", userHandler.ReplaceInterests)
		private.GET("/usuarios/:matricula", userHandler.Profile)
		private.GET("/usuarios/:matricula/publicaciones", publicationHandler.ByUser)
		private.GET("/usuarios/:matricula/eventos", eventHandler.ByUser)
		private.POST("/usuarios/:matricula/seguir", socialHandler.ToggleFollow)
		private.GET("/usuarios/:matricula/seguidores", socialHandler.Followers)
		private.GET("/usuarios/:matricula/seguidos", socialHandler.Following)

		private.GET("/intereses", userHandler.Interests)

		private.POST("/asesorias", middleware.RequireRoles(models.RoleStudent), advisoryHandler.Request)
		private.GET("/asesorias/asesor", middleware.RequireRoles(models.RoleStudent), advisoryHandler.CurrentAdvisor)
		private.GET("/asesorias/solicitudes", middleware.RequireRoles(models.RoleAdvisor), advisoryHandler.PendingRequests)
		private.GET("/asesorias/estudiantes", middleware.RequireRoles(models.RoleAdvisor), advisoryHandler.Advisees)
		private.POST("/asesorias/:id/resolver", middleware.RequireRoles(models.RoleAdvisor), advisoryHandler.Resolve)
		private.DELETE("/asesorias/:id", advisoryHandler.Close)

		private.GET("/publicaciones", publicationHandler.Catalog)
		private.POST("/publicaciones", publicationHandler.Create)
		private.GET("/publicaciones/mias", publicationHandler.Mine)
		private.GET("/publicaciones/exportar", publicationHandler.CatalogCSV)
		private.GET("/publicaciones/:id", publicationHandler.Detail)
		private.PUT("/publicaciones/:id", publicationHandler.Update)
		private.DELETE("/publicaciones/:id", publicationHandler.Delete)
		private.GET("/publicaciones/:id/archivos/:archivo", publicationHandler.Download)
		private.DELETE("/publicaciones/:id/archivos/:archivo", publicationHandler.RemoveFile)
		private.POST("/publicaciones/:id/calificar", publicationHandler.Rate)
		private.GET("/publicaciones/:id/comentarios", publicationHandler.Comments)
		private.POST("/publicaciones/:id/comentarios", publicationHandler.Comment)
		private.DELETE("/publicaciones/:id/comentarios/:comentario", publicationHandler.DeleteComment)

		private.GET("/revisiones/pendientes", middleware.RequireRoles(models.RoleAdvisor), reviewHandler.PendingQueue)
		private.POST("/revisiones/:id", middleware.RequireRoles(models.RoleAdvisor), reviewHandler.Review)
		private.GET("/revisiones/:id/historial", reviewHandler.History)
		private.GET("/revisiones/:id/historial/pdf", reviewHandler.HistoryPDF)

		private.GET("/eventos", eventHandler.List)
		private.POST("/eventos", eventHandler.Create)
		private.GET("/eventos/buscar", eventHandler.Search)
		private.GET("/eventos/:id", eventHandler.Detail)
		private.PUT("/eventos/:id", eventHandler.Update)
		private.DELETE("/eventos/:id", eventHandler.Delete)
		private.POST("/eventos/:id/inscribir", eventHandler.Register)
		private.DELETE("/eventos/:id/inscribir", eventHandler.Unregister)

		private.GET("/buscar", searchHandler.General)
		private.GET("/sugerencias", searchHandler.Suggestions)

		admin := private.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/asesores/pendientes", userHandler.PendingAdvisors)
			admin.POST("/asesores/:matricula/aprobar", userHandler.ApproveAdvisor)
			admin.DELETE("/usuarios/:matricula", userHandler.AdminDeactivate)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Errorw("redis close failed", "error", err)
	}
}
