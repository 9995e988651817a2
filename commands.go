package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/example/task-tracker/config"
	"github.com/example/task-tracker/database"
	"github.com/example/task-tracker/modules/activity"
	apimod "github.com/example/task-tracker/modules/api"
	"github.com/example/task-tracker/modules/auth"
	cachemod "github.com/example/task-tracker/modules/cache"
	"github.com/example/task-tracker/modules/ratelimit"
	"github.com/example/task-tracker/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "tasktracker",
	Short:         "Multi-user task tracker with time tracking",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and all modules",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the users and tasks tables",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tasktracker %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the TOML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.SecretKey == config.DefaultSecretKey {
		log.Println("Warning: using the default JWT secret key; set JWT_SECRET_KEY in production")
	}

	logLevel := mono.LogLevelInfo
	if cfg.Log.Level == "error" {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		return fmt.Errorf("failed to create mono application: %w", err)
	}
	logger := app.Logger()

	// Redis backs the list cache and the rate limiter; both are off without it.
	var (
		cacheModule *cachemod.Module
		listCache   task.ListCache
		rateLimiter *ratelimit.Middleware
	)
	if cfg.Redis.Enabled() {
		cacheModule = cachemod.NewModule(cachemod.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.CachePrefix,
			TTL:      cfg.Redis.CacheTTL,
		}, logger.WithModule("cache"))
		listCache = cacheModule.Cache()
		rateLimiter = ratelimit.NewMiddleware(cacheModule.Client(), ratelimit.MiddlewareConfig{
			IPConfig:   ratelimit.PerMinute(cfg.RateLimit.AuthPerMinute),
			UserConfig: ratelimit.PerMinute(cfg.RateLimit.UserPerMinute),
		}, logger.WithModule("ratelimit"))
	}

	authModule := auth.NewModule(auth.Config{
		DBPath:  cfg.Database.Path,
		DBDebug: cfg.Database.Debug,
		JWT: auth.JWTConfig{
			SecretKey:            cfg.Auth.SecretKey,
			AccessTokenDuration:  cfg.Auth.AccessTokenTTL,
			RefreshTokenDuration: cfg.Auth.RefreshTokenTTL,
			Issuer:               cfg.Auth.Issuer,
		},
	}, logger.WithModule("auth"))
	taskModule := task.NewModule(task.Config{
		DBPath:  cfg.Database.Path,
		DBDebug: cfg.Database.Debug,
	}, listCache, logger.WithModule("task"))
	activityModule, err := activity.NewModule(activity.Config{FeedSize: cfg.Activity.FeedSize}, logger.WithModule("activity"))
	if err != nil {
		return err
	}
	apiModule := apimod.NewModule(apimod.Config{Addr: cfg.HTTP.Addr}, activityModule, rateLimiter, logger.WithModule("api"))

	if cacheModule != nil {
		app.Register(cacheModule)
	}
	app.Register(authModule)
	app.Register(taskModule)
	app.Register(activityModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}

	log.Println("=== Task Tracker Started ===")
	log.Printf("API available at %s", cfg.HTTP.Addr)
	log.Printf("Database: %s", cfg.Database.Path)
	if cfg.Redis.Enabled() {
		log.Printf("Redis: %s (list cache and rate limiting enabled)", cfg.Redis.Addr)
	} else {
		log.Println("Redis: disabled (no list cache, no rate limiting)")
	}
	log.Println("Endpoints:")
	log.Println("  POST   /api/v1/auth/register|login|refresh")
	log.Println("  GET    /api/v1/profile")
	log.Println("  GET    /api/v1/tasks?filter=&sort=&search=")
	log.Println("  POST   /api/v1/tasks")
	log.Println("  GET    /api/v1/tasks/:id")
	log.Println("  PUT    /api/v1/tasks/:id")
	log.Println("  DELETE /api/v1/tasks/:id")
	log.Println("  POST   /api/v1/tasks/:id/timer/start")
	log.Println("  POST   /api/v1/tasks/:id/timer/stop")
	log.Println("  POST   /api/v1/tasks/:id/toggle")
	log.Println("  GET    /api/v1/activity?limit=")
	log.Println("  GET    /ws?token=")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database.Path, cfg.Database.Debug)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("Warning: failed to close database: %v", err)
		}
	}()

	if err := auth.Migrate(db); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	if err := task.Migrate(db); err != nil {
		return fmt.Errorf("migrate tasks: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s\n", cfg.Database.Path)
	return nil
}
