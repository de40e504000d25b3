package license

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRegistryRecordsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg, err := NewFileRegistry(path)
	require.NoError(t, err)

	_, ok, err := reg.FirstUse()
	require.NoError(t, err)
	assert.False(t, ok)

	first := time.Unix(1_760_000_000, 0)
	stored, err := reg.RecordFirstUse(first)
	require.NoError(t, err)
	assert.True(t, first.Equal(stored))

	// a second installation run five minutes later
	again, err := NewFileRegistry(path)
	require.NoError(t, err)
	stored, err = again.RecordFirstUse(first.Add(5 * time.Minute))
	require.NoError(t, err)
	assert.True(t, first.Equal(stored))

	got, ok, err := again.FirstUse()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, first.Equal(got))
}

func TestFileRegistryNeverOverwritten(t *testing.T) {
	reg, err := NewFileRegistry(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	first := time.Unix(1_760_000_000, 0)
	_, err = reg.RecordFirstUse(first)
	require.NoError(t, err)

	stored, err := reg.RecordFirstUse(first.Add(-48 * time.Hour))
	require.NoError(t, err)
	assert.True(t, first.Equal(stored))
}

func TestFileRegistryDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg, err := NewFileRegistry(path)
	require.NoError(t, err)

	_, err = reg.RecordFirstUse(time.Unix(1_760_000_000, 500_000_000))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.InDelta(t, 1_760_000_000.5, doc["first_run_timestamp"], 1e-3)
	assert.NotEmpty(t, doc["note"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileRegistryConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	base := time.Unix(1_760_000_000, 0)

	var wg sync.WaitGroup
	results := make([]time.Time, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := NewFileRegistry(path)
			if !assert.NoError(t, err) {
				return
			}
			stored, err := reg.RecordFirstUse(base.Add(time.Duration(i) * time.Second))
			assert.NoError(t, err)
			results[i] = stored
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, results[0].Equal(r))
	}
}

func TestFileRegistryCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	reg, err := NewFileRegistry(path)
	require.NoError(t, err)
	_, _, err = reg.FirstUse()
	assert.Error(t, err)
}

func TestDefaultRegistryPath(t *testing.T) {
	t.Setenv("HOME", "/home/agent")
	path, err := DefaultRegistryPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/agent/.iagent_pay_registry/registry.json", path)
}
