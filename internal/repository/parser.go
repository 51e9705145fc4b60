package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"tree_nav/internal/domain/tree"
	"tree_nav/internal/parser"
	parserRPC "tree_nav/microservices/proto"
)

// LocalParser parses in process.
type LocalParser struct{}

func NewLocalParser() *LocalParser {
	return &LocalParser{}
}

func (LocalParser) Parse(_ context.Context, source, format string) (*tree.Tree, string, error) {
	classifier, err := parser.ClassifierFor(format)
	if err != nil {
		return nil, "", err
	}
	if classifier == nil {
		classifier = parser.Detect(source)
	}
	return parser.Parse(source, parser.WithClassifier(classifier)), classifier.Name(), nil
}

// GrpcParser delegates parsing to the parser microservice.
type GrpcParser struct {
	log    *zap.SugaredLogger
	client parserRPC.ParserServiceClient
}

func NewGrpcParser(log *zap.SugaredLogger, conn grpc.ClientConnInterface) *GrpcParser {
	return &GrpcParser{
		log:    log,
		client: parserRPC.NewParserServiceClient(conn),
	}
}

func (g *GrpcParser) Parse(ctx context.Context, source, format string) (*tree.Tree, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := parserRPC.ParseRequest(source, format)
	if err != nil {
		return nil, "", fmt.Errorf("build parse request: %w", err)
	}

	resp, err := g.client.Parse(ctx, req)
	if err != nil {
		g.log.Errorf("parser service: %v", err)
		return nil, "", fmt.Errorf("parser service: %w", err)
	}

	fields := resp.GetFields()
	tr, err := tree.FromMap(fields["tree"].GetStructValue().AsMap())
	if err != nil {
		return nil, "", fmt.Errorf("decode parsed tree: %w", err)
	}
	return tr, fields["format"].GetStringValue(), nil
}
