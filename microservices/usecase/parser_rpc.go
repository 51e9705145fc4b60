package usecase

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"tree_nav/internal/parser"
	parserRPC "tree_nav/microservices/proto"
)

type ParserUseCase struct {
	log *zap.SugaredLogger
	parserRPC.UnimplementedParserServiceServer
}

func NewParserUseCase(log *zap.SugaredLogger) *ParserUseCase {
	return &ParserUseCase{
		log: log,
	}
}

func (p *ParserUseCase) Parse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	source := fields["source"].GetStringValue()
	format := fields["format"].GetStringValue()

	classifier, err := parser.ClassifierFor(format)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if classifier == nil {
		classifier = parser.Detect(source)
	}

	tr := parser.Parse(source, parser.WithClassifier(classifier))
	stats := tr.Stats()
	p.log.Infof("parsed %d bytes as %s: %d nodes, %d leaves", len(source), classifier.Name(), stats.Nodes, stats.Leaves)

	resp, err := structpb.NewStruct(map[string]any{
		"format": classifier.Name(),
		"tree":   tr.AsMap(),
	})
	if err != nil {
		p.log.Errorf("encode parsed tree: %v", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}
