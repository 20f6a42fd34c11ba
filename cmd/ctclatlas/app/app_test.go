package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas"
	atlaserrors "github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

const testMetadata = `cell,condition
t1,tumor
t2,tumor
t3,tumor
n1,normal
n2,normal
n3,normal
e1,eczema
e2,eczema
e3,eczema
`

const testMatrix = `gene,t1,t2,t3,n1,n2,n3,e1,e2,e3
TOX,10,12,11,1,2,1,2,1,2
CCR4,3,4,3,0,0,1,0,1,0
CD3E,5,5,5,5,5,5,5,5,5
`

// writeDataset writes a small dense dataset and returns its manifest path.
func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"metadata.csv":   testMetadata,
		"expression.csv": testMatrix,
		"dataset.yaml":   "name: Test Atlas\nformat: dense\nmatrix: expression.csv\nmetadata: metadata.csv\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "dataset.yaml")
}

// newTestApp creates an app with a clean config and a silent logger.
func newTestApp(t *testing.T, config *Config) *App {
	t.Helper()
	if config == nil {
		config = &Config{}
	}
	config.LogOutput = "discard"
	logger := zerolog.Nop()

	app, err := New("1.0.0", "abc123", "2024-01-01", "test", WithConfig(config), WithLogger(&logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := newTestApp(t, nil)

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_Atlas_NoDataset verifies the error when nothing is configured.
func TestApp_Atlas_NoDataset(t *testing.T) {
	app := newTestApp(t, nil)

	_, err := app.Atlas()
	var cfgErr *atlaserrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Atlas() error = %v, want ConfigError", err)
	}
}

// TestApp_Atlas_Singleton verifies that Atlas() returns the same instance.
func TestApp_Atlas_Singleton(t *testing.T) {
	app := newTestApp(t, &Config{DatasetPath: writeDataset(t)})

	a1, err := app.Atlas()
	if err != nil {
		t.Fatalf("Atlas() failed: %v", err)
	}
	a2, err := app.Atlas()
	if err != nil {
		t.Fatalf("Atlas() failed on second call: %v", err)
	}
	if a1 != a2 {
		t.Error("Atlas() returned different instances, expected singleton")
	}
	if got := a1.Stats().Cells; got != 9 {
		t.Errorf("Stats().Cells = %d, want 9", got)
	}
}

// TestApp_Atlas_ThreadSafe verifies concurrent Atlas() calls are safe.
func TestApp_Atlas_ThreadSafe(t *testing.T) {
	app := newTestApp(t, &Config{DatasetPath: writeDataset(t)})

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]atlas.Atlas, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = app.Atlas()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Goroutine %d: Atlas() failed: %v", i, err)
		}
	}
	for i, a := range results[1:] {
		if a != results[0] {
			t.Errorf("Goroutine %d got different atlas instance", i+1)
		}
	}
}

// TestApp_Atlas_WithOptions verifies that options build a separate instance.
func TestApp_Atlas_WithOptions(t *testing.T) {
	app := newTestApp(t, &Config{DatasetPath: writeDataset(t)})

	base, err := app.Atlas()
	if err != nil {
		t.Fatal(err)
	}

	policy := compare.DefaultPolicy()
	policy.Threshold = 3
	custom, err := app.Atlas(atlas.WithDataset(base.Dataset()), atlas.WithPolicy(policy))
	if err != nil {
		t.Fatalf("Atlas(opts) failed: %v", err)
	}
	if custom == base {
		t.Error("Atlas(opts) returned the singleton")
	}
	if custom.Policy().Threshold != 3 {
		t.Errorf("Policy().Threshold = %v, want 3", custom.Policy().Threshold)
	}
	if base.Policy().Threshold == 3 {
		t.Error("custom policy leaked into the singleton")
	}
}

// TestApp_Atlas_ConfiguredTarget verifies config target and policy reach the atlas.
func TestApp_Atlas_ConfiguredTarget(t *testing.T) {
	policy := compare.DefaultPolicy()
	policy.Metric = compare.CohensD
	app := newTestApp(t, &Config{
		DatasetPath: writeDataset(t),
		Target:      expression.Normal,
		Policy:      policy,
	})

	a, err := app.Atlas()
	if err != nil {
		t.Fatal(err)
	}
	if a.Target() != expression.Normal {
		t.Errorf("Target() = %s, want normal", a.Target())
	}
	if a.Policy().Metric != compare.CohensD {
		t.Errorf("Policy().Metric = %s, want cohens_d", a.Policy().Metric)
	}
}

// TestApp_WithAtlas verifies an injected atlas is served without loading.
func TestApp_WithAtlas(t *testing.T) {
	b := expression.NewBuilder()
	if err := b.AddCell("t1", expression.Tumor); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("TOX", "t1", 1); err != nil {
		t.Fatal(err)
	}
	ds, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	injected, err := atlas.New(atlas.WithDataset(ds))
	if err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	app, err := New("dev", "", "", "", WithConfig(&Config{}), WithLogger(&logger), WithAtlas(injected))
	if err != nil {
		t.Fatal(err)
	}
	got, err := app.Atlas()
	if err != nil {
		t.Fatal(err)
	}
	if got != injected {
		t.Error("Atlas() did not return the injected instance")
	}
}
