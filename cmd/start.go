package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"feedsync/core/config"
	"feedsync/core/database"
	"feedsync/core/loader"
	"feedsync/core/logger"
	"feedsync/core/middleware/auth"
	"feedsync/core/middleware/rayid"
	"feedsync/core/scheduler"
	"feedsync/feature/account"
	"feedsync/feature/feedbin"
	"feedsync/feature/feeds"
	"feedsync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the feed sync server",
	Long:  `Starts the HTTP server, the background sync scheduler, and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := feeds.Migrate(db); err != nil {
			logg.Fatal("Failed to migrate database", zap.Error(err))
		}
		logg.Info("Connected to local store", zap.String("driver", cfg.Database.Driver))

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 5. Initialize Feature Loader
		mgr := loader.NewManager()

		accounts := account.NewService(db, logg)
		store := feeds.NewStore(db, logg)
		registry := feedbin.NewRegistry()

		syncFeature := sync.NewFeature(accounts, store, registry, cfg.Provider, logg)
		mgr.Register(syncFeature)

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 6. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Background Scheduler
		sched := scheduler.New(logg)
		if err := sched.Start(cfg.Sync, syncFeature.Service().SyncAll); err != nil {
			logg.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
