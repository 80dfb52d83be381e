package testsupport

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gymcoding/invoice-web/internal/config"
	"github.com/gymcoding/invoice-web/internal/importer"
	"github.com/gymcoding/invoice-web/invoice"
	"github.com/gymcoding/invoice-web/remote"
	"github.com/gymcoding/invoice-web/remote/sqlstore"
)

// Data sources used by seeded test stores.
const (
	InvoiceDataSource = "invoices"
	ItemDataSource    = "invoice-items"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadFixtureYAML loads YAML test data from a fixture file and unmarshals it.
func LoadFixtureYAML(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := yaml.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal YAML fixture from %s: %v", path, err)
	}
}

// LoadReader creates an io.Reader from fixture data.
func LoadReader(t *testing.T, path string) io.Reader {
	t.Helper()

	return strings.NewReader(string(LoadFixture(t, path)))
}

// CompareWithGolden compares actual data with expected data from a golden file.
// If the golden file doesn't exist, it creates one with the actual data.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("failed to create directory for %s: %v", path, err)
			}
			if err := os.WriteFile(path, actual, 0o644); err != nil {
				t.Fatalf("failed to write golden file to %s: %v", path, err)
			}
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// Config returns a valid configuration for tests: defaults, an unthrottled
// store and throwaway admin credentials.
func Config(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("APP_ENV", config.EnvTest)
	t.Setenv("ADMIN_PASSWORD", "test-password")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("STORE_DATA_SOURCE_ID", InvoiceDataSource)
	t.Setenv("STORE_RPS", "0")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("failed to build test config: %v", err)
	}
	return cfg
}

// OpenStore opens an in-memory snapshot store that lives for the test.
func OpenStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := sqlstore.Open(context.Background(), "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SeedStore imports the fixture at path into a fresh in-memory store.
func SeedStore(t *testing.T, path string) *sqlstore.Store {
	t.Helper()

	s := OpenStore(t)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open fixture %s: %v", path, err)
	}
	defer f.Close()

	batch, err := importer.New(invoice.DefaultSchema()).Parse(path, f)
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", path, err)
	}
	if err := batch.Load(context.Background(), s, InvoiceDataSource, ItemDataSource); err != nil {
		t.Fatalf("failed to load fixture %s: %v", path, err)
	}
	return s
}

// CountingStore wraps a remote.Store and counts calls per record id and
// queries per data source.
type CountingStore struct {
	remote.Store

	mu      sync.Mutex
	gets    map[string]int
	queries int
}

// NewCountingStore wraps next.
func NewCountingStore(next remote.Store) *CountingStore {
	return &CountingStore{Store: next, gets: map[string]int{}}
}

func (s *CountingStore) GetRecord(ctx context.Context, id string) (remote.Record, error) {
	s.mu.Lock()
	s.gets[id]++
	s.mu.Unlock()
	return s.Store.GetRecord(ctx, id)
}

func (s *CountingStore) QueryDataSource(ctx context.Context, q remote.Query) (remote.QueryResult, error) {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()
	return s.Store.QueryDataSource(ctx, q)
}

// Gets returns how often id was fetched.
func (s *CountingStore) Gets(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[id]
}

// Queries returns the number of data source queries.
func (s *CountingStore) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}
