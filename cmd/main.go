package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"tree_nav/internal/adapters"
	"tree_nav/internal/bootstrap"
	navigatorDelivery "tree_nav/internal/delivery/navigator"
	ownMiddleware "tree_nav/internal/middleware"
	"tree_nav/internal/repository"
	"tree_nav/internal/usecase/navigation"
	parserRPC "tree_nav/microservices/proto"
)

type mainDeliveryHandler struct {
	navigator *navigatorDelivery.NavigatorHandler
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func (a *dataBaseAdapters) Close(ctx context.Context) {
	if a.mongoAdapter != nil {
		_ = a.mongoAdapter.Close(ctx)
	}
	if a.redisAdapter != nil {
		_ = a.redisAdapter.Close(ctx)
	}
}

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	databaseAdapters := initDatabaseAdapters(ctx, logger, *cfg)
	defer databaseAdapters.Close(context.Background())

	var parserConn *grpc.ClientConn
	if cfg.ParserGrpcAddr != "" {
		parserConn, err = grpc.NewClient(cfg.ParserGrpcAddr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			parserRPC.CallOptions(int(cfg.ParserGrpcMaxMsgBytes)),
		)
		if err != nil {
			logger.Fatal("Failed to dial parser service", zap.Error(err))
		}
		defer parserConn.Close()
	}

	r := chi.NewRouter()
	handlers := initializeDeliveryHandlers(ctx, *cfg, logger, parserConn, databaseAdapters)
	handlers.Router(r, cfg.IsLocalCors)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Received shutdown signal")
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Infof("Server is running on port %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h.navigator.Routes(r)
}

// initDatabaseAdapters connects only the stores that are configured; the rest
// fall back to in-memory maps.
func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config) *dataBaseAdapters {
	adaptersSet := &dataBaseAdapters{}

	if cfg.MongoUri != "" {
		mongoAdapter := adapters.NewAdapterMongo(&cfg, log)
		if err := mongoAdapter.Init(ctx); err != nil {
			log.Fatal("Failed to initialize MongoDB", zap.Error(err))
		}
		adaptersSet.mongoAdapter = mongoAdapter
	}

	if cfg.RedisUrl != "" {
		redisAdapter := adapters.NewAdapterRedis(&cfg, log)
		if err := redisAdapter.Init(ctx); err != nil {
			log.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		adaptersSet.redisAdapter = redisAdapter
	}

	log.Info("Database adapters initialized")
	return adaptersSet
}

func initializeDeliveryHandlers(
	ctx context.Context,
	cfg bootstrap.Config,
	log *zap.SugaredLogger,
	parserConn *grpc.ClientConn,
	databaseAdapters *dataBaseAdapters,
) *mainDeliveryHandler {
	var trees navigation.TreeStore = repository.NewTreeMapStorage()
	if databaseAdapters.mongoAdapter != nil {
		mongoTrees := repository.NewTreeMongoStorage(log, databaseAdapters.mongoAdapter)
		if err := mongoTrees.EnsureIndexes(ctx); err != nil {
			log.Fatal("Failed to create tree indexes", zap.Error(err))
		}
		trees = mongoTrees
	}

	var sessions navigation.SessionStore = repository.NewSessionMapStorage()
	if databaseAdapters.redisAdapter != nil {
		sessions = repository.NewSessionRedisStorage(databaseAdapters.redisAdapter.GetClient(), cfg.SessionTTL)
	}

	var parser navigation.TreeParser = repository.NewLocalParser()
	if parserConn != nil {
		parser = repository.NewGrpcParser(log, parserConn)
	}

	navUC := navigation.NewUseCase(log, trees, sessions, parser, cfg.ParserFormat, navigation.WithTreeCacheSize(cfg.TreeCacheSize))
	return &mainDeliveryHandler{
		navigator: navigatorDelivery.NewNavigatorHandler(cfg, log, navUC),
	}
}
