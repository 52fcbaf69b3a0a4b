package testutil

import (
	"strings"
	"testing"

	"calculator-ledger/internal/logging"
	"calculator-ledger/internal/storage"
)

// OpenStore opens a migrated in-memory store private to the calling test.
// It is closed via t.Cleanup.
func OpenStore(t *testing.T) *storage.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := storage.Open("file:"+name+"?mode=memory&cache=shared", logging.Discard())
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
