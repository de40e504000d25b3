package license

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// RegistryDir is the directory under the user's home that holds installation
// state. It lives outside any project tree.
const RegistryDir = ".iagent_pay_registry"

const registryNote = "Do not delete. Tracks the iagent-pay trial period."

// Registry persists the first-use timestamp of an installation.
type Registry interface {
	// FirstUse returns the recorded timestamp, or false when none exists.
	FirstUse() (time.Time, bool, error)
	// RecordFirstUse stores t unless a timestamp already exists, and returns
	// the timestamp in effect afterwards.
	RecordFirstUse(t time.Time) (time.Time, error)
}

type registryDocument struct {
	FirstRunTimestamp float64 `json:"first_run_timestamp"`
	Note              string  `json:"note"`
}

// FileRegistry is a JSON document guarded by an advisory file lock. Writes go
// to a temp file that is renamed over the target.
type FileRegistry struct {
	path string
	// mu serialises goroutines; a Flock is only exclusive across processes.
	mu   sync.Mutex
	lock *flock.Flock
}

// DefaultRegistryPath returns ~/.iagent_pay_registry/registry.json.
func DefaultRegistryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, RegistryDir, "registry.json"), nil
}

// NewFileRegistry opens the registry at path, or at the default location when
// path is empty. The parent directory is created on demand.
func NewFileRegistry(path string) (*FileRegistry, error) {
	if path == "" {
		p, err := DefaultRegistryPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	return &FileRegistry{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (r *FileRegistry) Path() string { return r.path }

func (r *FileRegistry) FirstUse() (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.lock.RLock(); err != nil {
		return time.Time{}, false, fmt.Errorf("lock registry: %w", err)
	}
	defer r.lock.Unlock()

	return r.read()
}

func (r *FileRegistry) RecordFirstUse(t time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.lock.Lock(); err != nil {
		return time.Time{}, fmt.Errorf("lock registry: %w", err)
	}
	defer r.lock.Unlock()

	existing, ok, err := r.read()
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return existing, nil
	}

	doc := registryDocument{
		FirstRunTimestamp: float64(t.UnixNano()) / float64(time.Second),
		Note:              registryNote,
	}
	if err := r.write(doc); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (r *FileRegistry) read() (time.Time, bool, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read registry: %w", err)
	}

	var doc registryDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return time.Time{}, false, fmt.Errorf("decode registry %s: %w", r.path, err)
	}
	if doc.FirstRunTimestamp <= 0 {
		return time.Time{}, false, nil
	}
	return fromEpoch(doc.FirstRunTimestamp), true, nil
}

func (r *FileRegistry) write(doc registryDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

func fromEpoch(sec float64) time.Time {
	whole := int64(sec)
	return time.Unix(whole, int64((sec-float64(whole))*float64(time.Second)))
}

// MemoryRegistry keeps the timestamp in memory.
type MemoryRegistry struct {
	mu    sync.Mutex
	first time.Time
}

func (m *MemoryRegistry) FirstUse() (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.first, !m.first.IsZero(), nil
}

func (m *MemoryRegistry) RecordFirstUse(t time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.first.IsZero() {
		m.first = t
	}
	return m.first, nil
}
