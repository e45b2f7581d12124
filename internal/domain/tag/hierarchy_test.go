package tag

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpand(t *testing.T) {
	h := Hierarchy{
		"crime":            {"Context"},
		"independent home": {"Theme", "Time & Space", "Housing"},
	}

	tests := []struct {
		name string
		key  string
		want []string
	}{
		{"depth one", "crime", []string{"Context", "Context:::crime"}},
		{"depth three", "independent home", []string{
			"Theme",
			"Theme:::Time & Space",
			"Theme:::Time & Space:::Housing",
			"Theme:::Time & Space:::Housing:::independent home",
		}},
		{"unknown", "unknown_tag", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Expand(tt.key)
			if len(got) != len(tt.want) {
				t.Fatalf("Expand(%q) = %v, want %v", tt.key, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expand(%q)[%d] = %q, want %q", tt.key, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDefault(t *testing.T) {
	h := Default()
	got := h.Expand("crime")
	if len(got) != 3 || got[1] != "Context:::Crime" {
		t.Errorf("Expand(crime) = %v", got)
	}
	if len(h.Expand("independent home")) != 4 {
		t.Errorf("Expand(independent home) = %v", h.Expand("independent home"))
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tags.yaml")
	if err := os.WriteFile(path, []byte("marriage: [Theme, Relationships]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	h, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(h["marriage"]) != 2 {
		t.Errorf("marriage = %v", h["marriage"])
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_EmptyLevel(t *testing.T) {
	if _, err := Parse([]byte(`crime: [Context, ""]`)); err == nil {
		t.Fatal("expected error for empty level")
	}
}
