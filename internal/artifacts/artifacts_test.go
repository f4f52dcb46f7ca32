package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Crust & Co. Bakery", want: "Crust__Co_Bakery"},
		{in: "  ../../etc/passwd ", want: "etcpasswd"},
		{in: "Café-Noir_1", want: "Café-Noir_1"},
		{in: "***", want: ""},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCandidateFileName(t *testing.T) {
	t.Parallel()

	if got := CandidateFileName("ChIJ1", "Crust Bakery"); got != "crust_bakery_ChIJ1.json" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := CandidateFileName("", "!!"); got != "candidate.json" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestFolderSaveCandidateOverwrites(t *testing.T) {
	t.Parallel()

	folder := NewFolder(t.TempDir(), "tg 42")
	if filepath.Base(folder.Path()) != "tg_42" {
		t.Fatalf("expected tracking id sub folder, got %s", folder.Path())
	}

	if _, err := folder.SaveCandidate("1", "Alpha", map[string]any{"final_score": 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, err := folder.SaveCandidate("1", "Alpha", map[string]any{"final_score": 8})
	if err != nil {
		t.Fatalf("save again: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]float64
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["final_score"] != 8 {
		t.Fatalf("expected overwrite, got %v", decoded)
	}

	entries, err := os.ReadDir(folder.Path())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one artifact, got %d", len(entries))
	}
}

func TestNewFolderDefaults(t *testing.T) {
	t.Parallel()

	if got := NewFolder("", "").Path(); got != DefaultDir {
		t.Fatalf("expected default dir, got %s", got)
	}
}
