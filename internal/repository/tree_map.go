package repository

import (
	"context"
	"sync"

	"tree_nav/internal/domain/tree"
	errs "tree_nav/internal/errors"
)

// TreeMapStorage keeps uploads in process memory. It backs local runs without
// MongoDB and the tests.
type TreeMapStorage struct {
	mu    sync.RWMutex
	trees map[string]tree.Upload
}

func NewTreeMapStorage() *TreeMapStorage {
	return &TreeMapStorage{trees: make(map[string]tree.Upload)}
}

func (m *TreeMapStorage) SaveTree(_ context.Context, upload tree.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[upload.ID] = upload
	return nil
}

func (m *TreeMapStorage) GetTree(_ context.Context, treeID string) (tree.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	upload, ok := m.trees[treeID]
	if !ok {
		return tree.Upload{}, errs.ErrTreeNotFound
	}
	return upload, nil
}
