package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/models"
)

// FileStore keeps the collection as a single JSON array on disk.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadOrders returns an empty collection when the file does not exist yet.
func (s *FileStore) LoadOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageReadFailedError("file", err)
	}

	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, apperrors.NewStorageReadFailedError("file", fmt.Errorf("decode %s: %w", s.path, err))
	}
	return orders, nil
}

// SaveOrders writes to a temp file and renames it over the collection.
func (s *FileStore) SaveOrders(ctx context.Context, orders []models.Order) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageWriteFailedError("file", err)
	}

	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return apperrors.NewStorageWriteFailedError("file", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewStorageWriteFailedError("file", err)
	}
	tmp, err := os.CreateTemp(dir, ".orders-*.json")
	if err != nil {
		return apperrors.NewStorageWriteFailedError("file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStorageWriteFailedError("file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageWriteFailedError("file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return apperrors.NewStorageWriteFailedError("file", err)
	}
	return nil
}
