package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"tree_nav/internal/adapters"
	"tree_nav/internal/domain/tree"
	errs "tree_nav/internal/errors"
)

const treesCollection = "trees"

// MongoDB rejects documents nested deeper than 100 levels. A tree of depth d
// stored as an Upload nests 3*d+1 levels: node, options array, branch per level.
const maxMongoTreeDepth = 32

func checkNesting(upload tree.Upload) error {
	if upload.Stats.Depth > maxMongoTreeDepth {
		return fmt.Errorf("%w: depth %d, at most %d", errs.ErrTreeTooDeep, upload.Stats.Depth, maxMongoTreeDepth)
	}
	return nil
}

type TreeMongoStorage struct {
	log   *zap.SugaredLogger
	mongo *adapters.AdapterMongo
}

func NewTreeMongoStorage(log *zap.SugaredLogger, mongoAdapter *adapters.AdapterMongo) *TreeMongoStorage {
	return &TreeMongoStorage{
		log:   log,
		mongo: mongoAdapter,
	}
}

// EnsureIndexes creates the unique tree_id index.
func (t *TreeMongoStorage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := t.mongo.Database.Collection(treesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tree_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (t *TreeMongoStorage) SaveTree(ctx context.Context, upload tree.Upload) error {
	if err := checkNesting(upload); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := t.mongo.Database.Collection(treesCollection).InsertOne(ctx, upload)
	if err != nil {
		t.log.Errorf("failed to insert tree %s: %v", upload.ID, err)
		return fmt.Errorf("insert tree: %w", err)
	}

	t.log.Infof("tree %s stored (%d nodes)", upload.ID, upload.Stats.Nodes)
	return nil
}

func (t *TreeMongoStorage) GetTree(ctx context.Context, treeID string) (tree.Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var upload tree.Upload
	err := t.mongo.Database.Collection(treesCollection).
		FindOne(ctx, bson.M{"tree_id": treeID}).
		Decode(&upload)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return tree.Upload{}, errs.ErrTreeNotFound
	} else if err != nil {
		t.log.Error(err)
		return tree.Upload{}, fmt.Errorf("find tree: %w", err)
	}

	return upload, nil
}
