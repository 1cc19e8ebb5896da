package db

import (
	"context"
	"path/filepath"
	"testing"
)

// OpenTestMetastore opens a migrated metastore in t.TempDir() and closes it
// when the test ends.
func OpenTestMetastore(t *testing.T) *Metastore {
	t.Helper()

	m, err := Open(context.Background(), filepath.Join(t.TempDir(), "meta.sqlite"), 2)
	if err != nil {
		t.Fatalf("open test metastore: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}
