package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/employee-attendance/internal"
	"github.com/frahmantamala/employee-attendance/internal/attendance"
	attendancePostgres "github.com/frahmantamala/employee-attendance/internal/attendance/postgres"
	"github.com/frahmantamala/employee-attendance/internal/auth"
	"github.com/frahmantamala/employee-attendance/internal/cache"
	"github.com/frahmantamala/employee-attendance/internal/core/events"
	"github.com/frahmantamala/employee-attendance/internal/identity"
	"github.com/frahmantamala/employee-attendance/internal/profile"
	profilePostgres "github.com/frahmantamala/employee-attendance/internal/profile/postgres"
	"github.com/frahmantamala/employee-attendance/internal/transport/rest"
	"github.com/frahmantamala/employee-attendance/internal/transport/swagger"
	"github.com/frahmantamala/employee-attendance/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config            *internal.Config
	DB                *sqlx.DB
	Gorm              *gorm.DB
	Logger            *slog.Logger
	EventBus          *events.EventBus
	Cache             *cache.RedisCache
	Verifier          *identity.Verifier
	ProfileService    *profile.Service
	AttendanceService *attendance.Service

	cleanup []func()
}

// Close releases everything initializeDependencies opened, newest first.
func (d *Dependencies) Close() {
	for i := len(d.cleanup) - 1; i >= 0; i-- {
		d.cleanup[i]()
	}
}

func startHTTPServer() {
	ctx := context.Background()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router := setupRoutes(ctx, deps)

	cfg := deps.Config.Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(ctx context.Context, deps *Dependencies) *chi.Mux {
	cfg := deps.Config.Server

	openAPIPath := cfg.OpenAPIPath
	if _, err := swagger.LoadDocument(ctx, openAPIPath); err != nil {
		deps.Logger.Error("OpenAPI document not served", "error", err)
		openAPIPath = ""
	}

	authService := auth.NewService(deps.Verifier, deps.ProfileService, deps.Logger)

	checks := map[string]rest.Checker{}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.Ping
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Routes{
		DB:                deps.DB.DB,
		HealthChecks:      checks,
		AllowedOrigins:    cfg.Origins(),
		OpenAPIPath:       openAPIPath,
		AuthHandler:       auth.NewHandler(authService),
		RBAC:              auth.NewRBACAuthorization(deps.Logger),
		ProfileHandler:    profile.NewHandler(deps.ProfileService, cfg.RequestTimeout),
		AttendanceHandler: attendance.NewHandler(deps.AttendanceService, cfg.RequestTimeout),
	}, deps.Logger)
	return router
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	deps := &Dependencies{
		Config: config,
		Logger: logger.L(),
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db
	deps.cleanup = append(deps.cleanup, func() {
		if err := db.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	})

	gormDB, err := initGorm(db)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}
	deps.Gorm = gormDB

	rules, err := attendanceRules(config.Attendance)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.EventBus = events.NewEventBus(deps.Logger)
	deps.Verifier = newVerifier(config.Identity)
	deps.ProfileService = profile.NewService(profilePostgres.NewProfileRepository(db), deps.Logger)
	deps.ProfileService.UsePublisher(deps.EventBus)

	deps.AttendanceService = attendance.NewService(
		attendancePostgres.NewAttendanceRepository(gormDB),
		deps.ProfileService,
		rules,
		deps.Logger,
	)
	deps.AttendanceService.UsePublisher(deps.EventBus)

	if config.Redis.Enabled() {
		redisCache := cache.NewRedisCache(config.Redis)
		if err := redisCache.Ping(ctx); err != nil {
			deps.Logger.Warn("redis unavailable, serving manager views uncached", "error", err, "addr", config.Redis.Addr)
			_ = redisCache.Close()
		} else {
			deps.Cache = redisCache
			deps.AttendanceService.UseCache(redisCache)
			deps.cleanup = append(deps.cleanup, func() { _ = redisCache.Close() })

			eventHandler := attendance.NewEventHandler(deps.AttendanceService, deps.Logger)
			deps.cleanup = append(deps.cleanup, eventHandler.RegisterEventHandlers(deps.EventBus))
		}
	}

	return deps, nil
}

func attendanceRules(cfg internal.AttendanceConfig) (attendance.Rules, error) {
	loc, err := cfg.Location()
	if err != nil {
		return attendance.Rules{}, err
	}
	return attendance.Rules{
		LateCutoffHour:   cfg.LateCutoffHour,
		HalfDayThreshold: cfg.HalfDayThreshold,
		Location:         loc,
	}, nil
}

func newVerifier(cfg internal.IdentityConfig) *identity.Verifier {
	return identity.NewVerifier(cfg.JWTSecret, cfg.Issuer, cfg.Audience)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx connection pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}
