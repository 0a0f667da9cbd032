package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-console-api/api/swagger"
	"github.com/noah-isme/lms-console-api/internal/handler"
	"github.com/noah-isme/lms-console-api/internal/middleware"
	"github.com/noah-isme/lms-console-api/internal/models"
	"github.com/noah-isme/lms-console-api/internal/repository"
	"github.com/noah-isme/lms-console-api/internal/service"
	"github.com/noah-isme/lms-console-api/pkg/cache"
	"github.com/noah-isme/lms-console-api/pkg/config"
	"github.com/noah-isme/lms-console-api/pkg/database"
	"github.com/noah-isme/lms-console-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-console-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-console-api/pkg/middleware/requestid"
	"github.com/noah-isme/lms-console-api/pkg/storage"
)

// @title LMS Console API
// @version 1.0.0
// @description Back-office API for course material management, access control and activity auditing
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classRepo := repository.NewClassRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)

	activitySvc := service.NewActivityService(activityRepo, logr, service.ActivityQueueConfig{
		Workers:     cfg.Activity.Workers,
		BufferSize:  cfg.Activity.BufferSize,
		MaxRetries:  cfg.Activity.WriteRetry,
		ExportLimit: cfg.Activity.ExportLimit,
	})
	activitySvc.AttachMetrics(metricsSvc)

	authSvc := service.NewAuthService(userRepo, activitySvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lms-console-api",
	})

	accessSvc := service.NewAccessService(folderRepo, materialRepo, logr)
	scopeSvc := service.NewScopeService(classRepo, logr)
	signer := storage.NewSignedURLSigner(cfg.Materials.SignedURLSecret, cfg.Materials.SignedURLTTL)
	materialStore, err := storage.NewLocalStorage(cfg.Materials.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare material storage", "error", err)
	}

	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, courseRepo, validate, logr)
	folderSvc := service.NewFolderService(folderRepo, materialRepo, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, folderRepo, accessSvc, scopeSvc, activitySvc, signer, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Courses:   courseRepo,
		Classes:   classRepo,
		Materials: materialRepo,
		Users:     userRepo,
		Activity:  activityRepo,
		Metrics:   metricsSvc,
		Cache:     cacheSvc,
		Logger:    logr,
		CacheTTL:  cfg.Dashboard.CacheTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	activitySvc.Start(ctx)
	defer activitySvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, dashboardSvc)
	classHandler := handler.NewClassHandler(classSvc, scopeSvc, dashboardSvc)
	folderHandler := handler.NewFolderHandler(folderSvc, accessSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc, accessSvc, dashboardSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	fileHandler := handler.NewFileHandler(signer, materialStore)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)
	r.GET("/files/:id", fileHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authProtected := auth.Group("", middleware.JWT(authSvc))
	authProtected.POST("/logout", authHandler.Logout)
	authProtected.POST("/change-password", authHandler.ChangePassword)
	authProtected.GET("/me", authHandler.Me)

	protected := api.Group("", middleware.JWT(authSvc))
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	courses := protected.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", adminOnly, courseHandler.Create)
	courses.PUT("/:id", adminOnly, courseHandler.Update)
	courses.DELETE("/:id", adminOnly, courseHandler.Delete)

	classes := protected.Group("/classes")
	classes.GET("/mine", classHandler.Mine)
	classes.GET("", adminOnly, classHandler.List)
	classes.GET("/:id", adminOnly, classHandler.Get)
	classes.POST("", adminOnly, classHandler.Create)
	classes.PUT("/:id", adminOnly, classHandler.Update)
	classes.DELETE("/:id", adminOnly, classHandler.Delete)

	folders := protected.Group("/folders")
	folders.GET("", folderHandler.List)
	folders.GET("/:id", folderHandler.Get)
	folders.GET("/:id/materials", folderHandler.Materials)
	folders.POST("", adminOnly, folderHandler.Create)
	folders.PUT("/:id", adminOnly, folderHandler.Update)
	folders.DELETE("/:id", adminOnly, folderHandler.Delete)

	materials := protected.Group("/materials")
	materials.GET("", materialHandler.List)
	materials.GET("/scoped", materialHandler.ListScoped)
	materials.GET("/:id", materialHandler.Get)
	materials.GET("/:id/preview", materialHandler.Preview)
	materials.POST("", adminOnly, materialHandler.Create)
	materials.PUT("/:id", adminOnly, materialHandler.Update)
	materials.PATCH("/:id/visibility", adminOnly, materialHandler.UpdateVisibility)
	materials.DELETE("/:id", adminOnly, materialHandler.Delete)

	activity := protected.Group("/activity-logs", adminOnly)
	activity.GET("", activityHandler.List)
	activity.GET("/export", activityHandler.Export)

	protected.GET("/dashboard/stats", adminOnly, dashboardHandler.Stats)

	users := protected.Group("/users")
	users.GET("", adminOnly, userHandler.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
	users.POST("", adminOnly, userHandler.Create)
	users.PUT("/:id", adminOnly, userHandler.Update)
	users.PUT("/:id/password", adminOnly, userHandler.ResetPassword)
	users.DELETE("/:id", adminOnly, userHandler.Delete)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
