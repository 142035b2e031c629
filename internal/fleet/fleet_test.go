package fleet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wildrydes/dispatch/internal/domain"
)

func TestNew_Validates(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("empty roster accepted")
	}
	if _, err := New([]domain.Unicorn{{Name: "Ghost"}}); err == nil {
		t.Fatal("unicorn without color accepted")
	}
	if _, err := New([]domain.Unicorn{{Color: "White"}}); err == nil {
		t.Fatal("unicorn without name accepted")
	}
}

func TestNew_CopiesRoster(t *testing.T) {
	roster := []domain.Unicorn{{Name: "Rocinante", Color: "White"}}
	f, err := New(roster)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	roster[0].Name = "mutated"
	if f.All()[0].Name != "Rocinante" {
		t.Fatal("fleet shares caller's slice")
	}
}

func TestDefault(t *testing.T) {
	f := Default()
	if f.Size() != 4 {
		t.Fatalf("default size = %d, want 4", f.Size())
	}
	names := make(map[string]string)
	for _, u := range f.All() {
		names[u.Name] = u.Color
	}
	if names["Rocinante"] != "White" {
		t.Fatalf("Rocinante color = %q, want White", names["Rocinante"])
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.yaml")
	doc := `unicorns:
  - name: Rocinante
    color: White
    gender: Female
  - name: Shadowfax
    color: Silver
    gender: Male
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Size() != 2 {
		t.Fatalf("size = %d, want 2", f.Size())
	}
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.yaml")
	if err := os.WriteFile(path, []byte("unicorns: [{name: NoColor}]"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("roster with missing color accepted")
	}
}

func TestLoadOrDefault(t *testing.T) {
	f, err := LoadOrDefault("")
	if err != nil || f.Size() != 4 {
		t.Fatalf("empty path: f=%v err=%v", f, err)
	}
	f, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil || f.Size() != 4 {
		t.Fatalf("missing file: f=%v err=%v", f, err)
	}
}

func TestPick_CoversRoster(t *testing.T) {
	f := Default()
	seen := make(map[string]int)
	for i := 0; i < 1000; i++ {
		seen[f.Pick().Name]++
	}
	if len(seen) != f.Size() {
		t.Fatalf("picked %d of %d unicorns", len(seen), f.Size())
	}
}
