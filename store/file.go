package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	ordersFile  = "orders.json"
	counterFile = "counter.json"
)

// FileStore keeps every record in memory and rewrites two JSON documents
// on each mutation: the full order array and the id counter. The rewrite
// is not atomic; a crash mid-write can lose the snapshot. That matches
// the durability the service has always offered.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	orders []Order
	lastID int64
}

var _ Store = (*FileStore)(nil)

// OpenFileStore loads the snapshot from dir, creating it on first use.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	fs := &FileStore{dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, ordersFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &fs.orders); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ordersFile, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	data, err = os.ReadFile(filepath.Join(dir, counterFile))
	switch {
	case err == nil:
		var counter struct {
			LastID int64 `json:"last_id"`
		}
		if err := json.Unmarshal(data, &counter); err != nil {
			return nil, fmt.Errorf("decode %s: %w", counterFile, err)
		}
		fs.lastID = counter.LastID
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	return fs, nil
}

// save rewrites both documents. Callers hold the mutex.
func (fs *FileStore) save() error {
	orders := fs.orders
	if orders == nil {
		orders = []Order{}
	}
	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(fs.dir, ordersFile), data, 0o644); err != nil {
		return err
	}

	counter, err := json.Marshal(map[string]int64{"last_id": fs.lastID})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(fs.dir, counterFile), counter, 0o644)
}

func (fs *FileStore) Insert(_ context.Context, order *Order) (*Order, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.lastID++
	order.ID = fs.lastID
	order.Timestamp = newTimestamp()

	fs.orders = append(fs.orders, *order)
	if err := fs.save(); err != nil {
		return nil, err
	}

	stored := *order
	return &stored, nil
}

func (fs *FileStore) List(_ context.Context) ([]Order, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make([]Order, len(fs.orders))
	copy(out, fs.orders)
	return out, nil
}

func (fs *FileStore) FindByID(_ context.Context, id int64) (*Order, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.orders {
		if fs.orders[i].ID == id {
			found := fs.orders[i]
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (fs *FileStore) Update(_ context.Context, id int64, patch Patch) (*Order, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.orders {
		if fs.orders[i].ID != id {
			continue
		}
		fs.orders[i].Apply(patch)
		fs.orders[i].Timestamp = newTimestamp()
		if err := fs.save(); err != nil {
			return nil, err
		}
		updated := fs.orders[i]
		return &updated, nil
	}
	return nil, ErrNotFound
}

func (fs *FileStore) Delete(_ context.Context, id int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for i := range fs.orders {
		if fs.orders[i].ID == id {
			fs.orders = append(fs.orders[:i], fs.orders[i+1:]...)
			return fs.save()
		}
	}
	return ErrNotFound
}
