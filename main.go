package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	apirest "github.com/inair/warehouse/api/rest"
	"github.com/inair/warehouse/api/sse"
	apiws "github.com/inair/warehouse/api/ws"
	"github.com/inair/warehouse/audit"
	"github.com/inair/warehouse/cache"
	"github.com/inair/warehouse/config"
	dbadapter "github.com/inair/warehouse/db"
	"github.com/inair/warehouse/fleet"
	mw "github.com/inair/warehouse/middleware"
	"github.com/inair/warehouse/model"
	"github.com/inair/warehouse/scan"
	"github.com/inair/warehouse/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Domain services ----
	hub := apiws.NewHub(logger)
	scanSvc := scan.New(db, hub, cfg.Inventory.AlertThreshold, cfg.Inventory.DefaultLocation, logger)
	scanSvc.SetAlertStream(pubsub)
	fleetSvc := fleet.New(db, hub, logger)
	recognizer := scan.NewHTTPRecognizer(cfg.Recognizer)

	// Stale-telemetry sweep: drones that stop reporting go offline.
	sched.AddTicker("drone_offline_sweep", cfg.Drone.SweepInterval, func() {
		if _, err := fleetSvc.MarkStaleOffline(context.Background(), cfg.Drone.OfflineAfter); err != nil {
			logger.Error("offline sweep failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	invH := apirest.NewInventoryHandler(scanSvc, recognizer, auditSvc, cfg.Inventory.MaxUploadRows, logger)
	droneH := apirest.NewDroneHandler(db, fleetSvc, scanSvc, auditSvc, cfg.Security)
	productH := apirest.NewProductHandler(db)
	warehouseH := apirest.NewWarehouseHandler(db)
	reportH := apirest.NewReportHandler(scanSvc)
	adminH := apirest.NewAdminHandler(db, hub, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)
		authG.GET("/me", mw.Auth(cfg.Security, c), authH.Me)

		invG := api.Group("/inventory")
		invG.Use(mw.Auth(cfg.Security, c))
		invG.GET("", invH.List)
		invG.GET("/stats", invH.Stats)
		invG.GET("/alerts", invH.Alerts)
		invG.POST("/add", invH.Add)
		invG.POST("/scan_barcode", invH.ScanBarcode)
		invG.POST("/scan_photo", invH.ScanPhoto)
		invG.POST("/upload", invH.Upload)

		dronesG := api.Group("/drones")
		dronesG.Use(mw.Auth(cfg.Security, c))
		dronesG.GET("", droneH.List)
		dronesG.POST("", droneH.Register)
		dronesG.GET("/:id", droneH.Get)
		dronesG.GET("/:id/telemetry", droneH.Telemetry)
		dronesG.POST("/:id/status", droneH.SetStatus)

		// Drone-authenticated HTTP fallbacks for fleets without WS support.
		droneG := api.Group("/drone")
		droneG.Use(mw.DroneAuth(cfg.Security))
		droneG.POST("/telemetry", droneH.PushTelemetry)
		droneG.POST("/scan", droneH.Scan)

		productsG := api.Group("/products")
		productsG.Use(mw.Auth(cfg.Security, c))
		productsG.GET("", productH.List)
		productsG.POST("", productH.Create)
		productsG.GET("/:id", productH.Get)
		productsG.PUT("/:id", productH.Update)
		productsG.DELETE("/:id", productH.Delete)

		categoriesG := api.Group("/categories")
		categoriesG.Use(mw.Auth(cfg.Security, c))
		categoriesG.GET("", productH.ListCategories)
		categoriesG.POST("", productH.CreateCategory)

		warehousesG := api.Group("/warehouses")
		warehousesG.Use(mw.Auth(cfg.Security, c))
		warehousesG.GET("", warehouseH.List)
		warehousesG.POST("", warehouseH.Create)
		warehousesG.PUT("/:id", warehouseH.Update)
		warehousesG.DELETE("/:id", warehouseH.Delete)

		reportsG := api.Group("/reports")
		reportsG.Use(mw.Auth(cfg.Security, c))
		reportsG.GET("/inventory.csv", reportH.InventoryCSV)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/users", adminH.ListUsers)
		adminG.POST("/users/:id/active", adminH.SetUserActive)
		adminG.GET("/audit", adminH.AuditLogs)
	}

	// ---- WebSocket ----
	wsSrv := apiws.NewServer(hub, scanSvc, fleetSvc, c, cfg.Security, logger)
	r.GET("/ws", wsSrv.Handle)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
