package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"tree_nav/internal/bootstrap"
	parserRPC "tree_nav/microservices/proto"
	"tree_nav/microservices/usecase"
)

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	lis, err := net.Listen("tcp", ":"+cfg.ParserGrpcPort)
	if err != nil {
		logger.Fatalf("cant listen port %s: %v", cfg.ParserGrpcPort, err)
	}

	server := grpc.NewServer(parserRPC.ServerOptions(int(cfg.ParserGrpcMaxMsgBytes))...)
	parserRPC.RegisterParserServiceServer(server, usecase.NewParserUseCase(logger))

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		logger.Info("Received shutdown signal")
		server.GracefulStop()
	}()

	logger.Infof("parser service listening on :%s", cfg.ParserGrpcPort)
	if err := server.Serve(lis); err != nil {
		logger.Fatal("grpc server stopped", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	return logger.Sugar()
}
