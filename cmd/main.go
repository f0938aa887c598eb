package main

import (
	"log"

	"itinerary-service/internal/auth"
	"itinerary-service/internal/config"
	"itinerary-service/internal/handlers"
	"itinerary-service/internal/metrics"
	"itinerary-service/internal/models"
	"itinerary-service/internal/pipeline"
	"itinerary-service/internal/providers"
	"itinerary-service/internal/repository"
	"itinerary-service/internal/services"
	"itinerary-service/internal/services/caches"
	"itinerary-service/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func main() {
	cfg := InitConfig()
	db := ConnectDatabase(cfg)
	MigrateDatabase(db)
	minioClient := InitMinIOClient(cfg)

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	postRepo := repository.NewPostRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	photoService := services.NewPhotoService(photoRepo, postRepo, minioClient, cfg.MinioBucket)
	pipe := BuildPipeline(cfg, pipelineMetrics)
	postService := services.NewPostService(postRepo, photoService, pipe)

	app := fiber.New(fiber.Config{
		BodyLimit: 256 * 1024 * 1024, // photo archives
	})

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	postHandler := handlers.NewPostHandler(postService)
	photoHandler := handlers.NewPhotoHandler(photoService)

	api := app.Group("/api/itinerary")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	protected := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	protected.Get("/posts", postHandler.ListPosts)
	protected.Post("/posts", postHandler.CreatePost)
	protected.Get("/posts/:id", postHandler.GetPost)
	protected.Put("/posts/:id", postHandler.UpdatePost)
	protected.Delete("/posts/:id", postHandler.DeletePost)
	protected.Get("/posts/:id/categories", postHandler.GetCategories)
	protected.Get("/posts/:id/routes", postHandler.GetRoutes)
	protected.Post("/posts/:id/pipeline", postHandler.RunPipeline)

	protected.Post("/posts/:id/photos", photoHandler.UploadPhoto)
	protected.Post("/posts/:id/photos/archive", photoHandler.UploadArchive)
	protected.Get("/photos/:id", photoHandler.GetPhoto)
	protected.Get("/photos/:id/download", photoHandler.DownloadPhoto)
	protected.Delete("/photos/:id", photoHandler.DeletePhoto)
	protected.Post("/photos/:id/correction", photoHandler.CorrectLocation)

	routes := app.GetRoutes()
	log.Println("Registered routes:")
	for _, r := range routes {
		log.Printf("  %s %s\n", r.Method, r.Path)
	}

	port := cfg.AppPort
	if port == "" {
		port = "8080"
		log.Printf("Defaulting to port %s", port)
	}
	log.Printf("Server listening on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func ConnectDatabase(cfg *config.Config) *gorm.DB {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

func MigrateDatabase(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Photo{},
		&models.LocationEvidence{},
		&models.Location{},
		&models.PhotoLabel{},
		&models.LLMAnalysis{},
		&models.Category{},
		&models.RecommendedRoute{},
	)
	if err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

func InitMinIOClient(cfg *config.Config) *minio.Client {
	minioClient, err := storage.NewMinioClient(cfg)
	if err != nil {
		log.Fatalf("MinIO client initialization failed: %v", err)
	}
	return minioClient
}

// BuildPipeline assembles the resolution pipeline from the configured
// collaborators. The geocode cache is shared through Redis when configured
// and falls back to a per-instance memory cache otherwise.
func BuildPipeline(cfg *config.Config, m *metrics.PipelineMetrics) *pipeline.Pipeline {
	pc := cfg.Pipeline

	llm := providers.NewLLMClient(cfg.LLMEndpoint, cfg.LLMModel, pc.ProviderTimeout)
	geocoder := providers.NewNominatimGeocoder(cfg.GeocoderEndpoint, pc.ProviderTimeout)

	// The LLM's built-in OCR endpoint covers deployments without a dedicated
	// text-recognition service.
	var ocr pipeline.OCRClient = llm
	if cfg.OCREndpoint != "" {
		ocr = providers.NewOCRServiceClient(cfg.OCREndpoint, pc.ProviderTimeout)
	}

	var cache pipeline.GeocodeCache
	if cfg.RedisHost != "" {
		redisClient, err := storage.NewRedisClient(cfg.RedisHost, cfg.RedisPort)
		if err != nil {
			log.Printf("Redis unavailable, using in-memory geocode cache: %v", err)
			cache = caches.NewMemoryGeocodeCache(pc.GeocodeCacheTTL)
		} else {
			cache = caches.NewRedisGeocodeCache(redisClient)
		}
	} else {
		cache = caches.NewMemoryGeocodeCache(pc.GeocodeCacheTTL)
	}

	collector := pipeline.NewCollector(ocr, llm, pc.ExifAccuracyMeters, pc.ProviderTimeout, m)
	enricher := pipeline.NewEnricher(geocoder, cache, pc.GeocodePrecision, pc.GeocodeCacheTTL, pc.GeocodeRetryBackoff, m)
	router := pipeline.NewRouteRecommender(llm, pc.RouteMergeMeters, pc.ProviderTimeout, m)

	return pipeline.New(collector, enricher, router, pc, m)
}
