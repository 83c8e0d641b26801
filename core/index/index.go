package index

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Index is a named embedding index. Searches run against the current
// snapshot without locking, writers build a new snapshot and swap it in.
type Index struct {
	name    string
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes writers
	log     *slog.Logger
}

// New creates an empty index for the given embedding model.
func New(name string, modelName string, metric Metric, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	empty, err := NewSnapshot(modelName, metric, nil)
	if err != nil {
		return nil, helper.NewError("create empty snapshot", err)
	}

	i := &Index{name: name, log: logger}
	i.current.Store(empty)
	return i, nil
}

func (i *Index) Name() string { return i.name }

// Snapshot returns the current snapshot. It stays valid after later swaps.
func (i *Index) Snapshot() *Snapshot {
	return i.current.Load()
}

// Search runs a similarity search on the current snapshot.
func (i *Index) Search(query []float32, k int) ([]*model.RetrievalHit, error) {
	return i.Snapshot().Search(query, k)
}

// Add appends chunks by publishing a copy of the current snapshot.
func (i *Index) Add(chunks []*model.Chunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	cur := i.current.Load()
	next, err := cur.with(chunks)
	if err != nil {
		return helper.NewError("add chunks", err)
	}
	next.version = cur.version + 1
	i.current.Store(next)

	i.log.Debug("Added chunks to index", slog.String("index", i.name), slog.Int("added", len(chunks)), slog.Int("total", next.Len()), slog.Uint64("version", next.version))
	return nil
}

// Swap publishes a prebuilt snapshot and returns the replaced one.
func (i *Index) Swap(s *Snapshot) (*Snapshot, error) {
	if s == nil {
		return nil, model.NewIndexError("swap snapshot", model.NewEmptyInputError("snapshot"))
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	prev := i.current.Load()
	next := *s
	next.version = prev.version + 1
	i.current.Store(&next)

	i.log.Info("Swapped index snapshot", slog.String("index", i.name), slog.Int("chunks", next.Len()), slog.String("model", next.modelName), slog.Uint64("version", next.version))
	return prev, nil
}

// Build builds a complete new snapshot from build without publishing it.
// The caller publishes it with Swap.
func (i *Index) Build(ctx context.Context, modelName string, build func(ctx context.Context) ([]*model.Chunk, error)) (*Snapshot, error) {
	chunks, err := build(ctx)
	if err != nil {
		return nil, helper.NewError("build chunks", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, err := NewSnapshot(modelName, i.Snapshot().Metric(), chunks)
	if err != nil {
		return nil, helper.NewError("build snapshot", err)
	}
	return s, nil
}

// Rebuild builds a complete new snapshot from build and swaps it in.
// Concurrent readers observe either the old or the new snapshot.
// On error the current snapshot stays in place.
func (i *Index) Rebuild(ctx context.Context, modelName string, build func(ctx context.Context) ([]*model.Chunk, error)) error {
	s, err := i.Build(ctx, modelName, build)
	if err != nil {
		return err
	}

	_, err = i.Swap(s)
	return err
}
