package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"LABO-backend/docs"
	"LABO-backend/internal/catalog"
	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/loan_mgmt/reports"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/config"
	"LABO-backend/internal/platform/db"
	"LABO-backend/internal/platform/ids"
	"LABO-backend/internal/platform/logging"
	"LABO-backend/internal/platform/memstore"
	"LABO-backend/internal/platform/tracing"
	"LABO-backend/migrations"
)

// backends bundles the repositories behind each service for one storage driver.
type backends struct {
	conn      *sql.DB // nil with the memory driver
	inventory inventory.Repository
	loans     loans.Repository
	reports   reports.Repository
	catalog   catalog.Reader
	accounts  auth.AccountStore
	seeded    bool
}

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck
	log.Info("starting", zap.String("mode", cfg.Mode), zap.String("driver", cfg.DB.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal("tracing", zap.Error(err))
	}

	be, err := openBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal("storage", zap.Error(err))
	}
	if be.conn != nil {
		defer be.conn.Close()
	}

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret = []byte(uuid.NewString())
		log.Warn("auth.jwt_secret is empty; tokens will not survive a restart")
	}
	authSvc := auth.NewService(be.accounts, secret, cfg.Auth.TokenTTL)
	if be.seeded {
		if err := registerDemoAdmin(ctx, authSvc, log); err != nil {
			log.Fatal("demo admin", zap.Error(err))
		}
	}

	loc := cfg.Location()
	invSvc := inventory.NewService(be.inventory, log.Named("inventory"))
	loanSvc := loans.NewService(be.loans, log.Named("loans"), loc)
	reportSvc := reports.NewService(be.reports, log.Named("reports"), loc, ids.RealClock{})
	catalogSvc := catalog.NewService(be.catalog, be.conn, log.Named("catalog"))

	if cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logging.GinLogger(log), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == config.ModeDev {
		// CORS and API docs are only needed while developing the front end
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Location", logging.RequestIDHeader},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		if !cfg.Server.TLS {
			docs.SwaggerInfo.Schemes = []string{"http"}
		}
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if be.conn != nil {
			if err := be.conn.PingContext(c.Request.Context()); err != nil {
				c.String(http.StatusServiceUnavailable, "db down")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api/v2")
	auth.RegisterPublicRoutes(api, authSvc, cfg.Auth.LoginPerMinute)

	authed := api.Group("", auth.RequireAuth(secret))
	inventory.RegisterRoutes(authed, invSvc)
	loans.RegisterRoutes(authed, loanSvc, cfg.Ledger.RetryAttempts)
	reports.RegisterRoutes(authed, reportSvc)
	catalog.RegisterRoutes(authed, catalogSvc)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	auth.RegisterAdminRoutes(admin, authSvc)
	inventory.RegisterAdminRoutes(admin, invSvc)
	loans.RegisterAdminRoutes(admin, loanSvc, cfg.Ledger.RetryAttempts)
	catalog.RegisterAdminRoutes(admin, catalogSvc)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.TLS {
			certFile, keyFile := certPaths(cfg)
			log.Info("listening", zap.String("addr", "https://"+cfg.Server.Addr))
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Info("listening", zap.String("addr", "http://"+cfg.Server.Addr))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown", zap.Error(err))
	}
}

func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	if cfg.DB.Driver == config.DriverMemory {
		s := memstore.New()
		s.Seed()
		log.Warn("using the in-memory store; data is lost on exit")
		return &backends{
			inventory: s.Inventory(),
			loans:     s.Loans(),
			reports:   s.Reports(),
			catalog:   s.Catalog(),
			accounts:  s.Accounts(),
			seeded:    true,
		}, nil
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Info("connected to database", zap.String("dbname", cfg.DB.DBName))

	if cfg.DB.Migrate {
		m, err := db.NewMigrator(conn, migrations.FS, log.Named("migrate"))
		if err == nil {
			err = m.Up(ctx)
		}
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &backends{
		conn:      conn,
		inventory: inventory.NewStore(conn),
		loans:     loans.NewStore(conn),
		reports:   reports.NewStore(conn),
		catalog:   catalog.NewStore(conn),
		accounts:  auth.NewStore(conn),
	}, nil
}

// registerDemoAdmin creates the admin account for the seeded in-memory store.
func registerDemoAdmin(ctx context.Context, svc *auth.Service, log *zap.Logger) error {
	password := os.Getenv("LABO_DEMO_ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		password = uuid.NewString()
	}
	if _, err := svc.Register(ctx, "admin", password, auth.RoleAdmin); err != nil {
		return err
	}
	if generated {
		log.Warn("demo admin registered", zap.String("username", "admin"), zap.String("password", password))
	} else {
		log.Info("demo admin registered", zap.String("username", "admin"))
	}
	return nil
}

func certPaths(cfg *config.Config) (string, string) {
	dir := "config/tls/dev"
	if cfg.Mode == config.ModeRelease {
		dir = "config/tls/release"
	}
	return fmt.Sprintf("%s/%s", dir, cfg.Certificate.Cert), fmt.Sprintf("%s/%s", dir, cfg.Certificate.Key)
}
