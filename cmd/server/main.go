package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coldreach/internal/handlers"
	"coldreach/internal/mailer"
	"coldreach/internal/middleware"
	"coldreach/internal/models"
	"coldreach/internal/repositories"
	"coldreach/internal/services"
	"coldreach/internal/workers"
	"coldreach/pkg/config"
	"coldreach/pkg/database"
	"coldreach/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	// Initialize logger
	logger.Init()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Sending window in the configured business timezone
	loc, err := time.LoadLocation(cfg.Sending.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}
	window := models.NewBusinessWindow(cfg.Sending.WindowStartHour, cfg.Sending.WindowEndHour, loc)

	// Initialize repositories
	prospectRepo := repositories.NewProspectRepository(database.DB)
	templateRepo := repositories.NewTemplateRepository(database.DB)
	sequenceRepo := repositories.NewSequenceRepository(database.DB)
	scheduledRepo := repositories.NewScheduledEmailRepository(database.DB)
	sentRepo := repositories.NewSentEmailRepository(database.DB)

	// Initialize services
	allocator := services.NewSlotAllocator(rand.NewSource(time.Now().UnixNano()))
	scheduler := services.NewCapacityScheduler(allocator, window, cfg.Sending.MaxEmailsPerDay, cfg.Sending.SlotGrace)
	materializer := services.NewMaterializerService(prospectRepo, sequenceRepo, scheduledRepo, allocator, scheduler, window)
	mail := mailer.NewSMTPMailer(cfg.SMTP)
	dispatchService := services.NewDispatchService(
		scheduledRepo, sentRepo, prospectRepo, templateRepo, sequenceRepo,
		mail, window, cfg.Sending.MaxEmailsPerDay, cfg.SMTP.DefaultBCC,
	)
	prospectService := services.NewProspectService(prospectRepo, sequenceRepo, templateRepo, scheduledRepo, sentRepo)
	templateService := services.NewTemplateService(templateRepo, sequenceRepo)
	sequenceService := services.NewSequenceService(sequenceRepo, templateRepo, prospectRepo, scheduledRepo)
	reportService := services.NewReportService(sentRepo, templateRepo, sequenceRepo, window)

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	setupRoutes(router, prospectService, templateService, sequenceService, materializer, dispatchService, reportService, sentRepo, mail)

	// Start the dispatch worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := workers.NewDispatchWorker(dispatchService, cfg.Sending.DispatchInterval)
	go func() {
		if err := worker.Start(ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Errorf("dispatch worker exited")
		}
	}()
	defer worker.Stop()

	// Setup server
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Errorf("Server forced to shutdown")
	}
	logger.Infof("Server stopped")
}

func setupRoutes(
	router *gin.Engine,
	prospectService *services.ProspectService,
	templateService *services.TemplateService,
	sequenceService *services.SequenceService,
	materializer *services.MaterializerService,
	dispatchService *services.DispatchService,
	reportService *services.ReportService,
	sentRepo *repositories.SentEmailRepository,
	mail mailer.Mailer,
) {
	// Initialize handlers
	prospectHandler := handlers.NewProspectHandler(prospectService)
	templateHandler := handlers.NewTemplateHandler(templateService)
	sequenceHandler := handlers.NewSequenceHandler(sequenceService, materializer)
	dispatchHandler := handlers.NewDispatchHandler(dispatchService, mail)
	reportHandler := handlers.NewReportHandler(reportService)
	trackingHandler := handlers.NewTrackingHandler(sentRepo, prospectService)

	api := router.Group("/api")
	{
		prospects := api.Group("/prospects")
		{
			prospects.POST("", prospectHandler.Create)
			prospects.GET("", prospectHandler.List)
			prospects.GET("/:id", prospectHandler.Get)
			prospects.PUT("/:id", prospectHandler.Update)
			prospects.DELETE("/:id", prospectHandler.Delete)
			prospects.GET("/:id/timeline", prospectHandler.Timeline)
		}

		templates := api.Group("/templates")
		{
			templates.POST("", templateHandler.Create)
			templates.GET("", templateHandler.List)
			templates.PUT("/:id", templateHandler.Update)
			templates.DELETE("/:id", templateHandler.Delete)
		}

		sequences := api.Group("/sequences")
		{
			sequences.POST("", sequenceHandler.Create)
			sequences.GET("", sequenceHandler.List)
			sequences.PUT("/:id", sequenceHandler.Update)
			sequences.DELETE("/:id", sequenceHandler.Delete)
			sequences.POST("/:id/steps", sequenceHandler.AddStep)
			sequences.GET("/:id/steps", sequenceHandler.ListSteps)
			sequences.PUT("/:id/steps/:step_id", sequenceHandler.UpdateStep)
			sequences.DELETE("/:id/steps/:step_id", sequenceHandler.DeleteStep)
			sequences.POST("/assign", sequenceHandler.Assign)
		}

		api.POST("/dispatch/run", dispatchHandler.Run)
		api.POST("/dispatch/force", dispatchHandler.Force)
		api.POST("/dispatch/test", dispatchHandler.SendTest)

		reports := api.Group("/reports")
		{
			reports.GET("/sent", reportHandler.ListSent)
			reports.GET("/summary", reportHandler.Summary)
			reports.GET("/export", reportHandler.ExportXLSX)
		}
	}

	// Tracking endpoints live outside /api, they are linked from email bodies
	router.GET("/track/open/:id", trackingHandler.TrackOpen)
	router.GET("/unsubscribe", trackingHandler.Unsubscribe)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
