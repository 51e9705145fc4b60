package repository

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"tree_nav/internal/domain/session"
	"tree_nav/internal/domain/tree"
	errs "tree_nav/internal/errors"
	parserRPC "tree_nav/microservices/proto"
	"tree_nav/microservices/usecase"
)

const iris = "|--- petal width <= 0.80\n|   |--- class: setosa\n|--- petal width >  0.80\n|   |--- class: versicolor\n"

func TestTreeMapStorage(t *testing.T) {
	ctx := context.Background()
	store := NewTreeMapStorage()

	_, err := store.GetTree(ctx, "nope")
	assert.ErrorIs(t, err, errs.ErrTreeNotFound)

	upload := tree.Upload{ID: "t-1", FileName: "a.txt", Root: &tree.DecisionNode{Question: "A"}}
	require.NoError(t, store.SaveTree(ctx, upload))
	got, err := store.GetTree(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, upload, got)
}

func TestSessionMapStorage(t *testing.T) {
	ctx := context.Background()
	store := NewSessionMapStorage()

	s := session.Session{ID: "s-1", TreeID: "t-1", Choices: []int{0, 1}}
	require.NoError(t, store.StoreSession(ctx, s))

	s.Choices[0] = 9
	got, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got.Choices)

	got.Choices[1] = 7
	again, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, again.Choices)

	require.NoError(t, store.DeleteSession(ctx, "s-1"))
	_, err = store.GetSession(ctx, "s-1")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
	assert.ErrorIs(t, store.DeleteSession(ctx, "s-1"), errs.ErrSessionNotFound)
}

func TestLocalParserFormats(t *testing.T) {
	p := NewLocalParser()

	tr, format, err := p.Parse(context.Background(), iris, "auto")
	require.NoError(t, err)
	assert.Equal(t, "sklearn", format)
	assert.Equal(t, "<= 0.80", tr.Root.Options[0].Value)

	tr, format, err = p.Parse(context.Background(), iris, "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", format)
	assert.True(t, tr.Empty())

	_, _, err = p.Parse(context.Background(), iris, "dot")
	assert.Error(t, err)
}

func dialParserService(t *testing.T, maxBytes int) grpc.ClientConnInterface {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	var serverOpts []grpc.ServerOption
	dialOpts := []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if maxBytes > 0 {
		serverOpts = parserRPC.ServerOptions(maxBytes)
		dialOpts = append(dialOpts, parserRPC.CallOptions(maxBytes))
	}

	server := grpc.NewServer(serverOpts...)
	parserRPC.RegisterParserServiceServer(server, usecase.NewParserUseCase(zap.NewNop().Sugar()))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet", dialOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGrpcParserMatchesLocalParser(t *testing.T) {
	remote := NewGrpcParser(zap.NewNop().Sugar(), dialParserService(t, 0))
	got, format, err := remote.Parse(context.Background(), iris, "")
	require.NoError(t, err)
	assert.Equal(t, "sklearn", format)

	want, _, err := NewLocalParser().Parse(context.Background(), iris, "")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, _, err = remote.Parse(context.Background(), iris, "dot")
	assert.Error(t, err)
}

func TestGrpcParserLargeUploads(t *testing.T) {
	// over the 4 MiB gRPC default, below the configured limit
	source := iris + strings.Repeat("|   |--- value: [0.00, 1.00]\n", 200000)
	require.Greater(t, len(source), 5<<20)

	_, _, err := NewGrpcParser(zap.NewNop().Sugar(), dialParserService(t, 0)).Parse(context.Background(), source, "")
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	got, format, err := NewGrpcParser(zap.NewNop().Sugar(), dialParserService(t, 16<<20)).Parse(context.Background(), source, "")
	require.NoError(t, err)
	assert.Equal(t, "sklearn", format)
	assert.Equal(t, tree.Stats{Nodes: 1, Leaves: 2, Depth: 1}, got.Stats())
}

func chain(depth int) *tree.DecisionNode {
	node := &tree.DecisionNode{Question: "q", Options: []tree.Branch{{Value: "no", Result: "leaf"}}}
	for i := 1; i < depth; i++ {
		node = &tree.DecisionNode{Question: "q", Options: []tree.Branch{{Value: "yes", Child: node}}}
	}
	return node
}

func TestCheckNestingRejectsDeepTrees(t *testing.T) {
	ok := chain(maxMongoTreeDepth)
	require.Equal(t, maxMongoTreeDepth, (&tree.Tree{Root: ok}).Stats().Depth)
	assert.NoError(t, checkNesting(tree.Upload{Root: ok, Stats: (&tree.Tree{Root: ok}).Stats()}))

	deep := chain(maxMongoTreeDepth + 1)
	err := checkNesting(tree.Upload{Root: deep, Stats: (&tree.Tree{Root: deep}).Stats()})
	assert.ErrorIs(t, err, errs.ErrTreeTooDeep)

	// the Mongo store refuses before touching the connection
	store := NewTreeMongoStorage(zap.NewNop().Sugar(), nil)
	assert.ErrorIs(t, store.SaveTree(context.Background(), tree.Upload{Root: deep, Stats: (&tree.Tree{Root: deep}).Stats()}), errs.ErrTreeTooDeep)
}
