package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"chatsync/internal/adapter/api"
	"chatsync/internal/adapter/api/handler"
	apimiddleware "chatsync/internal/adapter/api/middleware"
	"chatsync/internal/adapter/api/router"
	"chatsync/internal/adapter/repository"
	"chatsync/internal/adapter/repository/memory"
	domainrepo "chatsync/internal/domain/repository"
	"chatsync/internal/infrastructure/firebase"
	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/internal/infrastructure/storage"
	"chatsync/internal/infrastructure/websocket"
	"chatsync/internal/livesync"
	"chatsync/internal/usecase"
	"chatsync/pkg/config"
	"chatsync/pkg/logger"
	"chatsync/pkg/response"
)

type backend struct {
	chatRepo domainrepo.ChatRepository
	userRepo domainrepo.UserRepository
	auth     interface {
		usecase.FirebaseAuthClient
		apimiddleware.TokenVerifier
	}
	uploader usecase.MediaUploader
	media    *storage.LocalMediaStore
	closers  []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.IsDevelopment())
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var b *backend
	switch cfg.StoreDriver {
	case config.StoreMemory:
		b = memoryBackend(cfg)
	default:
		b, err = firestoreBackend(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
	}
	defer func() {
		for _, closeFn := range b.closers {
			if err := closeFn(); err != nil {
				logger.Warn("Shutdown: %v", err)
			}
		}
	}()

	rateLimiter := ratelimit.NewRateLimiter(nil)

	presenceUseCase := usecase.NewPresenceUseCase(b.userRepo, b.auth, b.uploader, rateLimiter)
	chatUseCase := usecase.NewChatUseCase(b.chatRepo, b.userRepo, b.uploader, rateLimiter)
	messageUseCase := usecase.NewMessageUseCase(b.chatRepo, b.uploader, rateLimiter, cfg.SeenFanoutLimit)

	typingDelay := usecase.ClampTypingDebounce(cfg.TypingDebounce)
	wsManager := websocket.NewManager(
		presenceUseCase,
		func(ctx context.Context) *livesync.Session {
			return livesync.NewSession(ctx, b.chatRepo, b.userRepo, messageUseCase)
		},
		func(chatID, uid string) websocket.TypingHandle {
			return usecase.NewTypist(messageUseCase, chatID, uid, typingDelay)
		},
	)

	handler.Setup(presenceUseCase, chatUseCase, messageUseCase)
	handler.SetupHealthHandler(wsManager, cfg.StoreDriver)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.ErrorHandler
	e.Validator = api.NewValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	} else {
		e.Use(middleware.CORS())
	}

	authMiddleware := apimiddleware.NewAuthMiddleware(ctx, b.auth, cfg.TokenCacheTTL)
	profileMiddleware := apimiddleware.NewProfileMiddleware(b.userRepo)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.AllowedOrigins)

	router.Setup(e, authMiddleware, profileMiddleware, rateLimiter, wsHandler)
	if b.media != nil {
		router.SetupMediaRouter(e, handler.NewMediaHandler(b.media))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rateLimiter.Run(gctx, 5*time.Minute)
	})
	g.Go(func() error {
		logger.Info("Starting server on port %s (store: %s)", cfg.ServerPort, cfg.StoreDriver)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped: %v", err)
	}
	logger.Info("Server stopped")
}

// memoryBackend keeps everything in process. Tokens are "dev-<uid>".
func memoryBackend(cfg *config.Config) *backend {
	logger.Warn("Using the in-memory store; all data is lost on restart")
	store := memory.NewStore()
	media := storage.NewLocalMediaStore(cfg.PublicBaseURL)
	return &backend{
		chatRepo: memory.NewChatRepository(store),
		userRepo: memory.NewUserRepository(store),
		auth:     firebase.NewDevAuthClient(),
		uploader: media,
		media:    media,
	}
}

func firestoreBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	var opt option.ClientOption

	// Try to get service account from environment variable (for production)
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))
	} else {
		// Fallback to file path (for local development)
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			return nil, err
		}
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		opt = option.WithCredentialsFile(cfg.ServiceAccountPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		return nil, err
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, err
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		return nil, err
	}

	b := &backend{
		chatRepo: repository.NewFirestoreChatRepository(firestoreClient),
		userRepo: repository.NewFirestoreUserRepository(firestoreClient),
		auth:     firebase.NewFirebaseAuthClient(authClient),
		closers:  []func() error{firestoreClient.Close},
	}

	if cfg.StorageBucket == "" {
		logger.Warn("STORAGE_BUCKET not set; media is kept in memory")
		b.media = storage.NewLocalMediaStore(cfg.PublicBaseURL)
		b.uploader = b.media
		return b, nil
	}

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opt)
	if err != nil {
		firestoreClient.Close()
		return nil, err
	}
	b.uploader = storageClient
	b.closers = append(b.closers, storageClient.Close)
	return b, nil
}
