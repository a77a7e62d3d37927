package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"devtalk/infrastructure/cache"
	"devtalk/infrastructure/db"
	"devtalk/infrastructure/ws"
	httpHandler "devtalk/internal/delivery/http"
	"devtalk/internal/delivery/websocket"
	"devtalk/internal/repository"
	"devtalk/internal/usecase"
	"devtalk/pkg/jwt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; env vars may come from the environment directly
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	mongoDbHost := os.Getenv("MONGODB_URI")
	mongoDbName := os.Getenv("MONGODB_DATABASE")
	mongoStore, err := db.NewMongoStore(ctx, mongoDbHost, mongoDbName)
	if err != nil {
		logger.Fatal("mongodb connect failed", zap.Error(err))
	}
	defer mongoStore.Close(ctx)

	logger.Info("connected to MongoDB", zap.String("database", mongoDbName))

	// Initialize repositories
	userRepo := repository.NewUserRepository(*mongoStore.DB)
	convRepo := repository.NewConversationRepository(*mongoStore.DB)
	messageRepo := repository.NewMessageRepository(*mongoStore.DB)

	if err := convRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("conversation indexes", zap.Error(err))
	}
	if err := messageRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("message indexes", zap.Error(err))
	}

	// Initialize JWT manager
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production" // Default for development
		logger.Warn("using default JWT secret, set JWT_SECRET in .env for production")
	}
	jwtManager := jwt.NewJWTManager(jwtSecret, 15*time.Minute)

	// Check if Redis is enabled
	redisAddr := os.Getenv("REDIS_ADDR")

	var hub ws.IHub
	if redisAddr != "" {
		serverID := os.Getenv("SERVER_ID")
		if serverID == "" {
			serverID = "server-1" // Default
		}
		logger.Info("using Redis hub", zap.String("addr", redisAddr), zap.String("serverId", serverID))
		hub = ws.NewRedisHub(redisAddr, serverID, logger)
	} else {
		logger.Info("using in-memory hub (single server)")
		hub = ws.NewHub(logger)
	}
	go hub.Run()

	// Initialize use cases
	profileCache := cache.NewMemCache(time.Minute)
	defer profileCache.Close()

	gateway := ws.NewGateway(hub, logger)
	userUc := usecase.NewUserUseCase(userRepo, profileCache)
	messageUc := usecase.NewMessageUsecase(convRepo, messageRepo, userRepo, gateway, mongoStore, logger)
	convUc := usecase.NewConversationUsecase(convRepo, userRepo, logger)

	// CORS middleware
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			// Handle preflight requests
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Initialize handlers
	websocketH := websocket.NewWebsocketHandler(hub, userUc, messageUc, logger)
	httpH := httpHandler.NewHttpHandler(convUc, messageUc, userUc, logger)
	authMiddleware := httpHandler.NewAuthMiddleware(jwtManager)

	// Map routes
	httpHandler.MapHttpRoutes(router, httpH, websocketH, authMiddleware)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("HTTP server running", zap.String("port", port))

	if err := http.ListenAndServe(":"+port, router); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
