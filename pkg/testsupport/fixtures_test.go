package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "request.json")
	if err := os.WriteFile(testFile, []byte(`{"tenantCode":"0","name":"系统"}`), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var result map[string]any
	LoadFixtureJSON(t, testFile, &result)

	if result["tenantCode"] != "0" || result["name"] != "系统" {
		t.Errorf("unexpected fixture content: %v", result)
	}
}

func TestCompareWithGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "query.sql")

	// first run creates the file
	CompareWithGolden(t, path, []byte("SELECT 1\n"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden file was not created: %v", err)
	}
	if string(data) != "SELECT 1\n" {
		t.Errorf("unexpected golden content %q", data)
	}

	CompareWithGolden(t, path, []byte("SELECT 1\n"))
}

func TestCompareWithGoldenJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	WriteGolden(t, path, []byte("{\n  \"name\": \"a%\"\n}\n"))

	CompareWithGoldenJSON(t, path, map[string]any{"name": "a%"})
}

func TestPaths(t *testing.T) {
	if got := FixturePath("menu.json"); got != filepath.Join("testdata", "menu.json") {
		t.Errorf("unexpected fixture path %q", got)
	}
	if got := GoldenPath("menu.sql"); got != filepath.Join("testdata", "golden", "menu.sql") {
		t.Errorf("unexpected golden path %q", got)
	}
}

func TestOpenSQLite(t *testing.T) {
	db := OpenSQLite(t,
		`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`,
		`INSERT INTO items (id, name) VALUES (1, 'a'), (2, 'b')`,
	)

	var n int
	if err := db.NewRaw("SELECT COUNT(*) FROM items").Scan(context.Background(), &n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows, got %d", n)
	}

	// databases are private to each call
	other := OpenSQLite(t)
	if _, err := other.ExecContext(context.Background(), "SELECT * FROM items"); err == nil {
		t.Error("expected the second database not to see the first schema")
	}
}
