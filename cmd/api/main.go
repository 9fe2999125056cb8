package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/pixelmuse/pixelmuse-backend/internal/core/auth"
	"github.com/pixelmuse/pixelmuse-backend/internal/core/provider"
	"github.com/pixelmuse/pixelmuse-backend/internal/core/router"
	"github.com/pixelmuse/pixelmuse-backend/internal/core/storage"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/handlers"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/repositories"
	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/services"
	"github.com/pixelmuse/pixelmuse-backend/internal/shared/config"
	"github.com/pixelmuse/pixelmuse-backend/internal/shared/database"
	"github.com/pixelmuse/pixelmuse-backend/internal/shared/utils"
)

func main() {
	// Load config
	cfg := config.LoadConfig()
	utils.InitLogger()
	log.Printf("🚀 Starting pixelmuse-api on port %s", cfg.Port)

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init repositories
	userRepo := repositories.NewUserRepo(db.GORM)
	templateRepo := repositories.NewTemplateRepo(db.GORM)
	balanceRepo := repositories.NewBalanceRepo(db.GORM)
	generationRepo := repositories.NewGenerationRepo(db.GORM)

	// Init generation providers
	pollCfg := provider.DefaultPollConfig()
	providers := buildProviders(cfg, pollCfg)
	if len(providers) == 0 {
		log.Fatal("❌ No generation provider configured (set OPENAI_API_KEY / GEMINI_API_KEY / RUNWAY_API_KEY / KLING_API_KEY)")
	}

	// Init router
	genRouter := router.New(router.NewDefaultConfig(), providers, pollCfg)

	// Init artifact storage
	storageProvider := buildStorage(cfg)
	log.Printf("📦 Artifact storage: %s", storageProvider.GetProviderName())

	// Init services
	generationService := services.NewGenerationService(
		templateRepo,
		balanceRepo,
		generationRepo,
		genRouter,
		storageProvider,
		cfg.GenerationTimeout,
		cfg.RefundOnFailure,
	)

	creditService := services.NewCreditService(balanceRepo)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	authService := auth.NewService(userRepo, balanceRepo, jwtService)

	// Init handlers
	authHandler := handlers.NewAuthHandler(authService)
	templateHandler := handlers.NewTemplateHandler(templateRepo)
	generationHandler := handlers.NewGenerationHandler(generationService, generationRepo)
	creditHandler := handlers.NewCreditHandler(creditService)

	// Stale-generation sweeper
	sweeper := services.NewSweeper(generationRepo, cfg.GenerationTimeout)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("❌ Failed to start sweeper: %v", err)
	}
	defer sweeper.Stop()

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName:   "Pixelmuse API",
		BodyLimit: 20 * 1024 * 1024, // uploaded reference images
	})

	// Middleware
	app.Use(cors.New())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "pixelmuse-api",
		})
	})

	// Local artifact serving (development storage)
	if cfg.StorageProvider == "local" {
		app.Static("/uploads", cfg.StoragePath)
	}

	// Auth routes
	app.Post("/auth/register", authHandler.Register)
	app.Post("/auth/login", authHandler.Login)

	// Public catalog routes
	app.Get("/templates", templateHandler.ListTemplates)
	app.Get("/templates/:id", templateHandler.GetTemplate)

	// Authenticated routes
	authed := app.Group("", auth.Middleware(jwtService))
	authed.Post("/templates/:id/like", templateHandler.LikeTemplate)
	authed.Post("/generations/template/:id", generationHandler.GenerateFromTemplate)
	authed.Post("/generations/tool/:type", generationHandler.GenerateWithTool)
	authed.Get("/generations", generationHandler.ListGenerations)
	authed.Get("/generations/:id", generationHandler.GetGeneration)
	authed.Get("/credits", creditHandler.GetBalance)

	// Admin routes
	admin := app.Group("/admin", auth.Middleware(jwtService), auth.AdminOnly())
	admin.Post("/credits/grant", creditHandler.GrantCredits)

	// Start server
	log.Printf("✅ pixelmuse-api running at :%s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

func buildProviders(cfg *config.Config, poll provider.PollConfig) map[provider.ProviderType]provider.Provider {
	providers := make(map[provider.ProviderType]provider.Provider)

	add := func(ptype provider.ProviderType, key string) {
		if key == "" {
			log.Printf("⚠️ Provider %s not configured, skipping", ptype)
			return
		}
		p, err := provider.NewProvider(&provider.ProviderConfig{
			Type:      ptype,
			OpenAIKey: cfg.OpenAIKey,
			GeminiKey: cfg.GeminiKey,
			RunwayKey: cfg.RunwayKey,
			KlingKey:  cfg.KlingKey,
			Poll:      poll,
		})
		if err != nil {
			log.Printf("⚠️ Failed to init provider %s: %v", ptype, err)
			return
		}
		providers[ptype] = p
	}

	add(provider.ProviderOpenAI, cfg.OpenAIKey)
	add(provider.ProviderGemini, cfg.GeminiKey)
	add(provider.ProviderRunway, cfg.RunwayKey)
	add(provider.ProviderKling, cfg.KlingKey)

	return providers
}

func buildStorage(cfg *config.Config) storage.Provider {
	switch cfg.StorageProvider {
	case "s3":
		p, err := storage.NewS3Provider(cfg.S3AccessKeyID, cfg.S3SecretKey, cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			log.Fatalf("❌ Failed to init S3 storage: %v", err)
		}
		return p
	default:
		p, err := storage.NewLocalProvider(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to init local storage: %v", err)
		}
		return p
	}
}
