package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/dropaz_api/internal/cache"
	"github.com/GTDGit/dropaz_api/internal/config"
	"github.com/GTDGit/dropaz_api/internal/database"
	"github.com/GTDGit/dropaz_api/internal/handler"
	"github.com/GTDGit/dropaz_api/internal/middleware"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/sse"
	"github.com/GTDGit/dropaz_api/internal/utils"
	"github.com/GTDGit/dropaz_api/internal/worker"
)

const (
	version       = "1.0.0"
	migrationsDir = "migrations"
)

// main is the application entrypoint for the drop.az storefront API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Bool("debug", cfg.Debug).Msg("starting drop.az api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.Migrate(db.DB, migrationsDir); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	treeCache := cache.NewCategoryCache(redisClient, cfg.Catalog.CategoryCacheTTL)

	// 4. Initialize repositories
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	newsletterRepo := repository.NewNewsletterRepository(db)

	// 5. Initialize integrations
	rootCtx := context.Background()
	storageSvc, err := service.NewStorageService(rootCtx, &cfg.S3)
	if err != nil {
		log.Warn().Err(err).Msg("S3 initialization failed - image uploads will be disabled")
		storageSvc = &service.StorageService{}
	}

	searchSvc, err := service.NewSearchService(&cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Elasticsearch initialization failed - search falls back to SQL")
		searchSvc = nil
	}
	if !searchSvc.Enabled() {
		log.Info().Msg("Elasticsearch not configured - suggestions use SQL search")
	}

	mailSvc := service.NewMailService(&cfg.SMTP)
	otpSender := service.NewLogOTPSender(cfg.Debug)
	tokens := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, cfg.JWT.AdminTTL)

	// 6. Initialize services
	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)

	authSvc := service.NewAuthService(userRepo, otpSender, tokens, cfg.OTP, cfg.Debug)
	adminAuthSvc := service.NewAdminAuthService(adminRepo, tokens)
	catalogSvc := service.NewCatalogService(categoryRepo, productRepo, treeCache, searchSvc)
	newsletterSvc := service.NewNewsletterService(newsletterRepo, mailSvc, cfg.Newsletter.Secret, cfg.SiteURL)
	seoSvc := service.NewSEOService(categoryRepo, productRepo, cfg.SiteURL)
	adminCategorySvc := service.NewAdminCategoryService(categoryRepo, treeCache, storageSvc, notifier)
	adminProductSvc := service.NewAdminProductService(productRepo, categoryRepo, treeCache, searchSvc, storageSvc, notifier)
	adminUserSvc := service.NewAdminUserService(userRepo)

	if err := adminAuthSvc.EnsureAdmin(rootCtx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
		log.Error().Err(err).Msg("failed to create bootstrap admin")
	}

	// 7. Initialize handlers
	limiter := middleware.NewInvalidAuthRateLimiter(0, 0)
	handlers := &Handlers{
		Health: handler.NewHealthHandler(version, map[string]handler.HealthCheck{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		Auth:          handler.NewAuthHandler(authSvc, limiter),
		Catalog:       handler.NewCatalogHandler(catalogSvc),
		Ajax:          handler.NewAjaxHandler(catalogSvc, newsletterSvc),
		Pages:         handler.NewPagesHandler(seoSvc),
		AdminAuth:     handler.NewAdminAuthHandler(adminAuthSvc, limiter),
		AdminCategory: handler.NewAdminCategoryHandler(adminCategorySvc),
		AdminProduct:  handler.NewAdminProductHandler(adminProductSvc),
		AdminUser:     handler.NewAdminUserHandler(adminUserSvc),
		SSE:           handler.NewSSEHandler(hub),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(tokens)
	adminMw := middleware.NewAdminMiddleware(tokens)

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw, adminMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	// 11. Start workers
	go limiter.Run(ctx)
	go worker.NewOTPCleanupWorker(userRepo, cfg.OTP.TTL, cfg.Worker.OTPCleanupInterval).Start(ctx)
	go worker.NewCategoryCacheWorker(catalogSvc, cfg.Worker.CategoryWarmInterval).Start(ctx)
	go worker.NewSearchSyncWorker(productRepo, searchSvc, cfg.Worker.SearchSyncInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers and end SSE streams
	cancel()
	hub.CloseAll()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Catalog       *handler.CatalogHandler
	Ajax          *handler.AjaxHandler
	Pages         *handler.PagesHandler
	AdminAuth     *handler.AdminAuthHandler
	AdminCategory *handler.AdminCategoryHandler
	AdminProduct  *handler.AdminProductHandler
	AdminUser     *handler.AdminUserHandler
	SSE           *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Storefront catalog (Azerbaijani aliases share handlers)
	catalog := handlers.Catalog
	for _, path := range []string{"/", "/ana-sehife"} {
		router.GET(path, catalog.Home)
	}
	for _, path := range []string{"/products", "/mehsullar", "/search", "/axtar", "/api/v1/products", "/api/filter-products"} {
		router.GET(path, catalog.ListProducts)
	}
	router.GET("/products/category/:category_slug", catalog.ListProducts)
	router.GET("/products/price/:range", catalog.ListProducts)
	router.GET("/yenilikler", catalog.NewProducts)
	router.GET("/product/:slug", catalog.ProductDetail)
	router.GET("/mehsul/:slug", catalog.ProductDetail)
	router.GET("/categories", catalog.Categories)
	router.GET("/kateqoriyalar", catalog.Categories)
	router.GET("/category/:slug", catalog.CategoryDetail)
	router.GET("/kateqoriya/:slug", catalog.CategoryDetail)
	router.GET("/api/v1/categories", catalog.CategoryDetail)

	// Navigation and AJAX
	api := router.Group("/api")
	{
		api.GET("/header-categories", catalog.HeaderCategories)
		api.GET("/category-tree", catalog.Categories)
		api.GET("/category-breadcrumb/:slug", catalog.Breadcrumb)
		api.POST("/clear-category-cache", adminMiddleware.Handle(), catalog.ClearCategoryCache)

		api.GET("/search-suggestions", handlers.Ajax.SearchSuggestions)
		api.GET("/v1/search", handlers.Ajax.SearchSuggestions)
		api.GET("/product-stats", handlers.Ajax.ProductStats)
		api.POST("/newsletter-subscribe", handlers.Ajax.Subscribe)
		api.GET("/newsletter-unsubscribe", handlers.Ajax.Unsubscribe)
		api.GET("/pages", handlers.Pages.Pages)
	}

	// Static pages and crawler documents
	for _, page := range service.StaticPages() {
		router.GET("/"+page.Page, handlers.Pages.StaticPage(page.Page))
	}
	router.GET("/sitemap.xml", handlers.Pages.Sitemap)
	router.GET("/robots.txt", handlers.Pages.Robots)

	// Customer accounts
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/send-otp", handlers.Auth.SendOTP)
		auth.POST("/verify-otp", handlers.Auth.VerifyOTP)
		auth.POST("/token/refresh", handlers.Auth.RefreshToken)
	}
	account := auth.Group("", jwtMiddleware.Handle())
	{
		account.GET("/profile", handlers.Auth.Profile)
		account.PUT("/profile/update", handlers.Auth.UpdateProfile)
		account.PATCH("/profile/update", handlers.Auth.UpdateProfile)
	}

	// Admin routes
	router.POST("/admin/api/auth/login", handlers.AdminAuth.Login)
	router.GET("/admin/api/events", adminMiddleware.HandleQuery(), handlers.SSE.Stream)

	admin := router.Group("/admin/api")
	admin.Use(adminMiddleware.Handle())
	{
		// Category Management
		admin.GET("/categories", handlers.AdminCategory.List)
		admin.GET("/categories/export", handlers.AdminCategory.Export)
		admin.POST("/categories", handlers.AdminCategory.Create)
		admin.POST("/categories/bulk-priority", handlers.AdminCategory.BulkPriority)
		admin.GET("/categories/:id", handlers.AdminCategory.Get)
		admin.PUT("/categories/:id", handlers.AdminCategory.Update)
		admin.DELETE("/categories/:id", handlers.AdminCategory.Delete)
		admin.PATCH("/categories/:id/priority", handlers.AdminCategory.SetPriority)
		admin.POST("/categories/:id/icon", handlers.AdminCategory.UploadIcon)
		admin.GET("/icons", handlers.AdminCategory.Icons)
		admin.GET("/priority-presets", handlers.AdminCategory.PriorityPresets)

		// Product Management
		admin.GET("/products", handlers.AdminProduct.List)
		admin.GET("/products/export", handlers.AdminProduct.Export)
		admin.POST("/products", handlers.AdminProduct.Create)
		admin.POST("/products/bulk", handlers.AdminProduct.Bulk)
		admin.GET("/products/:id", handlers.AdminProduct.Get)
		admin.PUT("/products/:id", handlers.AdminProduct.Update)
		admin.PATCH("/products/:id", handlers.AdminProduct.Patch)
		admin.DELETE("/products/:id", handlers.AdminProduct.Delete)
		admin.POST("/products/:id/image", handlers.AdminProduct.UploadImage)

		// Storefront users
		admin.GET("/users", handlers.AdminUser.List)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
