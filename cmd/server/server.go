package server

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/MalcolmCusack/zaymo-url-shortener/cmd"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/api"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/config"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/models"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/monitor"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/repository"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/services"
	"github.com/MalcolmCusack/zaymo-url-shortener/internal/workers"
)

// RunServerCmd starts the HTTP API, the click workers and the destination
// monitor.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Start the link shortener API server and background processes.",
	Long: `Initializes the database, configures the API routes, starts the
asynchronous click workers and the destination monitor, then serves HTTP.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// TranslateError so unique-constraint violations surface as
		// gorm.ErrDuplicatedKey; the allocator's retry loop depends on the
		// store reporting the collision.
		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{TranslateError: true})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := db.AutoMigrate(&models.Link{}, &models.Job{}, &models.JobLink{}, &models.Click{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		linkRepo := repository.NewLinkRepository(db)
		jobRepo := repository.NewJobRepository(db)
		clickRepo := repository.NewClickRepository(db)
		log.Println("Repositories initialized.")

		linkService := services.NewLinkService(linkRepo, cfg.Shortener.CodeLength)
		rewriteService := services.NewRewriteService(linkService, jobRepo,
			cfg.Shortener.ShortDomain, cfg.Shortener.MaxUploadBytes)
		resolveService := services.NewResolveService(linkRepo)
		analyticsService := services.NewAnalyticsService(clickRepo, linkRepo)
		log.Println("Services initialized.")

		// Click events flow through a buffered channel into the worker pool;
		// the redirect path never blocks on them.
		clickEvents := make(chan models.ClickEvent, cfg.Analytics.BufferSize)
		api.ClickEventsChannel = clickEvents
		workers.StartClickWorkers(cfg.Analytics.WorkerCount, clickEvents, clickRepo)
		log.Printf("Click event channel initialized with a buffer of %d. %d worker(s) started.",
			cfg.Analytics.BufferSize, cfg.Analytics.WorkerCount)

		monitorInterval := time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
		destMonitor := monitor.NewDestinationMonitor(linkRepo, monitorInterval, cfg.Monitor.RecentLinks)
		go destMonitor.Start()
		log.Printf("Destination monitor started with an interval of %v.", monitorInterval)

		router := gin.Default()
		api.SetupRoutes(router, rewriteService, resolveService, linkService, analyticsService,
			cfg.Shortener.MaxUploadBytes, cfg.Analytics.BufferSize)
		log.Println("API routes configured.")

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:    serverAddr,
			Handler: router,
		}

		go func() {
			log.Printf("Starting server on %s", serverAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// Graceful shutdown on SIGINT/SIGTERM.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received. Stopping server...")

		// Give in-flight click writes a moment to drain.
		time.Sleep(5 * time.Second)
		log.Println("Server stopped cleanly.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
