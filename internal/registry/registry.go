// Package registry is the durable catalog of named stores: a JSON
// mapping from store name to metadata, plus a separate default-name
// pointer. It resolves names to lazily-loaded index handles and is
// independent of query logic.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	naragerr "github.com/naragtive/naragtive/internal/errors"
	"github.com/naragtive/naragtive/internal/store"
)

const (
	registryFileName = "registry.json"
	defaultFileName  = "default"
	lockFileName     = ".registry.lock"

	registryVersion = 1

	// DefaultName is the reserved alias that resolves to the current
	// default store.
	DefaultName = "default"

	// handleCacheSize bounds how many indices stay loaded at once.
	handleCacheSize = 8
)

// StoreMetadata describes one registered store.
type StoreMetadata struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	SourceType  string    `json:"source_type"`
	CreatedAt   time.Time `json:"created_at"`
	RecordCount int       `json:"record_count"`
	Description string    `json:"description,omitempty"`
}

// registryFile is the on-disk registry document.
type registryFile struct {
	Version int                      `json:"version"`
	Stores  map[string]StoreMetadata `json:"stores"`
}

// Registry manages the store catalog under one directory.
//
// Mutations follow a strict discipline: take the cross-process write
// lock, load the current file, mutate in memory, write atomically.
// Loaded index handles are cached with an LRU and deduplicated with
// singleflight so concurrent Gets of the same store load it once.
type Registry struct {
	dir string

	mu  sync.Mutex // serializes mutations within the process
	flk *flock.Flock

	handles *lru.Cache[string, *store.Index]
	loading singleflight.Group
}

// DefaultDir returns the conventional registry location.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".naragtive", "stores"), nil
}

// Open creates a registry rooted at dir, creating the directory if
// needed and validating any existing registry file. A file that exists
// but does not parse is reported as corrupt, not treated as empty.
func Open(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeSaveFailed, fmt.Errorf("create registry directory: %w", err))
	}

	handles, err := lru.NewWithEvict(handleCacheSize, func(name string, _ *store.Index) {
		slog.Debug("store_handle_evicted", slog.String("store", name))
	})
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeInternal, err)
	}

	r := &Registry{
		dir:     dir,
		flk:     flock.New(filepath.Join(dir, lockFileName)),
		handles: handles,
	}

	if _, err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a new named store. The index file must already exist;
// it is opened once to record its size.
func (r *Registry) Register(name, path, sourceType, description string) (StoreMetadata, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == DefaultName {
		return StoreMetadata{}, naragerr.ValidationError(
			fmt.Sprintf("invalid store name %q", name), nil)
	}

	if _, err := os.Stat(path); err != nil {
		return StoreMetadata{}, naragerr.MissingFileError(path)
	}

	// Opening validates the file and yields the record count.
	idx, err := store.Open(path)
	if err != nil {
		return StoreMetadata{}, err
	}

	meta := StoreMetadata{
		Name:        name,
		Path:        path,
		SourceType:  sourceType,
		CreatedAt:   time.Now().UTC(),
		RecordCount: idx.Count(),
		Description: description,
	}

	err = r.mutate(func(rf *registryFile) error {
		if _, taken := rf.Stores[name]; taken {
			return naragerr.DuplicateNameError(name)
		}
		rf.Stores[name] = meta
		return nil
	})
	if err != nil {
		return StoreMetadata{}, err
	}

	r.handles.Add(name, idx)

	slog.Info("store_registered",
		slog.String("store", name),
		slog.String("path", path),
		slog.Int("records", meta.RecordCount))

	return meta, nil
}

// Get resolves a name (or the "default" alias, or "") to a loaded
// index handle. Handles are process-cached; concurrent calls for the
// same store share one load.
func (r *Registry) Get(name string) (*store.Index, error) {
	meta, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	if idx, ok := r.handles.Get(meta.Name); ok {
		return idx, nil
	}

	v, err, _ := r.loading.Do(meta.Name, func() (any, error) {
		if idx, ok := r.handles.Get(meta.Name); ok {
			return idx, nil
		}
		idx, err := store.Open(meta.Path)
		if err != nil {
			return nil, err
		}
		r.handles.Add(meta.Name, idx)
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Index), nil
}

// Lookup resolves a name to its metadata without loading the index.
func (r *Registry) Lookup(name string) (StoreMetadata, error) {
	rf, err := r.load()
	if err != nil {
		return StoreMetadata{}, err
	}

	if name == "" || name == DefaultName {
		defName, ok := r.defaultName()
		if !ok {
			return StoreMetadata{}, naragerr.New(naragerr.ErrCodeNoDefaultStore,
				"no default store is set", nil).
				WithSuggestion("register a store and run 'naragtive stores set-default <name>'")
		}
		name = defName
	}

	meta, ok := rf.Stores[name]
	if !ok {
		return StoreMetadata{}, naragerr.NotFoundError(name)
	}
	return meta, nil
}

// List returns a snapshot of all store metadata, sorted by name.
func (r *Registry) List() ([]StoreMetadata, error) {
	rf, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make([]StoreMetadata, 0, len(rf.Stores))
	for _, meta := range rf.Stores {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DefaultName returns the current default store name, if one is set.
func (r *Registry) DefaultName() (string, bool) {
	return r.defaultName()
}

// SetDefault points the default alias at an existing store.
func (r *Registry) SetDefault(name string) error {
	rf, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := rf.Stores[name]; !ok {
		return naragerr.NotFoundError(name)
	}

	return r.writeDefault(name)
}

// Delete removes a store from the catalog. The index file itself is
// left on disk. If the deleted store was the default, the default
// becomes unset; it is never silently reassigned.
func (r *Registry) Delete(name string) error {
	err := r.mutate(func(rf *registryFile) error {
		if _, ok := rf.Stores[name]; !ok {
			return naragerr.NotFoundError(name)
		}
		delete(rf.Stores, name)
		return nil
	})
	if err != nil {
		return err
	}

	if def, ok := r.defaultName(); ok && def == name {
		if err := os.Remove(r.defaultPath()); err != nil && !os.IsNotExist(err) {
			return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
		}
	}

	r.handles.Remove(name)
	slog.Info("store_deleted", slog.String("store", name))
	return nil
}

// Rename changes a store's name, carrying the default pointer along if
// it referenced the old name.
func (r *Registry) Rename(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == DefaultName {
		return naragerr.ValidationError(fmt.Sprintf("invalid store name %q", newName), nil)
	}

	err := r.mutate(func(rf *registryFile) error {
		meta, ok := rf.Stores[oldName]
		if !ok {
			return naragerr.NotFoundError(oldName)
		}
		if _, taken := rf.Stores[newName]; taken {
			return naragerr.DuplicateNameError(newName)
		}
		meta.Name = newName
		delete(rf.Stores, oldName)
		rf.Stores[newName] = meta
		return nil
	})
	if err != nil {
		return err
	}

	if def, ok := r.defaultName(); ok && def == oldName {
		if err := r.writeDefault(newName); err != nil {
			return err
		}
	}

	if idx, ok := r.handles.Get(oldName); ok {
		r.handles.Remove(oldName)
		r.handles.Add(newName, idx)
	}
	return nil
}

// Refresh re-reads a store's index file from disk, replacing the
// cached handle and updating the recorded count.
func (r *Registry) Refresh(name string) (*store.Index, error) {
	meta, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	idx, err := store.Open(meta.Path)
	if err != nil {
		return nil, err
	}
	r.handles.Add(meta.Name, idx)

	err = r.mutate(func(rf *registryFile) error {
		m, ok := rf.Stores[meta.Name]
		if !ok {
			return naragerr.NotFoundError(meta.Name)
		}
		m.RecordCount = idx.Count()
		rf.Stores[meta.Name] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Dir returns the registry root directory.
func (r *Registry) Dir() string {
	return r.dir
}

// --- persistence ---

func (r *Registry) registryPath() string {
	return filepath.Join(r.dir, registryFileName)
}

func (r *Registry) defaultPath() string {
	return filepath.Join(r.dir, defaultFileName)
}

// load reads and validates the registry file. A missing file is an
// empty registry; an unparseable one is reported as corrupt so a
// partial parse never masquerades as a valid catalog.
func (r *Registry) load() (*registryFile, error) {
	data, err := os.ReadFile(r.registryPath())
	if os.IsNotExist(err) {
		return &registryFile{Version: registryVersion, Stores: map[string]StoreMetadata{}}, nil
	}
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeRegistryCorrupt, err)
	}

	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, naragerr.New(naragerr.ErrCodeRegistryCorrupt,
			fmt.Sprintf("registry file %s is not valid JSON", r.registryPath()), err).
			WithSuggestion("restore the registry file from a backup or re-register the stores")
	}
	if rf.Version != registryVersion {
		return nil, naragerr.New(naragerr.ErrCodeRegistryCorrupt,
			fmt.Sprintf("unsupported registry version %d", rf.Version), nil)
	}
	if rf.Stores == nil {
		rf.Stores = map[string]StoreMetadata{}
	}
	return &rf, nil
}

// mutate applies one change under the write lock: load current state,
// run fn, persist atomically. A failing fn leaves the file untouched.
func (r *Registry) mutate(fn func(*registryFile) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flk.Lock(); err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, fmt.Errorf("acquire registry lock: %w", err))
	}
	defer func() { _ = r.flk.Unlock() }()

	rf, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(rf); err != nil {
		return err
	}
	return r.save(rf)
}

// save writes the registry atomically: temp file, fsync, rename.
func (r *Registry) save(rf *registryFile) error {
	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	tmpPath := r.registryPath() + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if err := os.Rename(tmpPath, r.registryPath()); err != nil {
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	return nil
}

func (r *Registry) defaultName() (string, bool) {
	data, err := os.ReadFile(r.defaultPath())
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(data))
	return name, name != ""
}

// writeDefault persists the default pointer atomically.
func (r *Registry) writeDefault(name string) error {
	tmpPath := r.defaultPath() + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(name+"\n"), 0o644); err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	if err := os.Rename(tmpPath, r.defaultPath()); err != nil {
		_ = os.Remove(tmpPath)
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	return nil
}
