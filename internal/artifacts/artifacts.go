package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	DefaultDir     = "final_structured_output"
	FailedFileName = "failed_companies.json"
)

// Folder is the output directory of one ranking run. Files are overwritten by key.
type Folder struct {
	path string
}

// NewFolder returns the folder for base, nested under trackingID when one is set.
func NewFolder(base, trackingID string) *Folder {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultDir
	}
	if id := SanitizeName(trackingID); id != "" {
		base = filepath.Join(base, id)
	}
	return &Folder{path: base}
}

func (f *Folder) Path() string {
	return f.path
}

// Join returns the path of name inside the folder.
func (f *Folder) Join(name string) string {
	return filepath.Join(f.path, name)
}

// SaveJSON writes v as indented JSON under name and returns the written path.
func (f *Folder) SaveJSON(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return f.WriteFile(name, append(data, '\n'))
}

// WriteFile replaces the file name with data.
func (f *Folder) WriteFile(name string, data []byte) (string, error) {
	if err := os.MkdirAll(f.path, 0o755); err != nil {
		return "", fmt.Errorf("create output folder %s: %w", f.path, err)
	}
	path := f.Join(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// SaveCandidate stores one evaluation result. Saving the same candidate again overwrites it.
func (f *Folder) SaveCandidate(id, name string, v any) (string, error) {
	return f.SaveJSON(CandidateFileName(id, name), v)
}

// SaveFailed stores the candidates that failed every attempt.
func (f *Folder) SaveFailed(v any) (string, error) {
	return f.SaveJSON(FailedFileName, v)
}

// CandidateFileName builds a stable file name from the lowercase display name and the identity.
func CandidateFileName(id, name string) string {
	base := SanitizeName(strings.ToLower(name))
	if sid := SanitizeName(id); sid != "" {
		if base == "" {
			base = sid
		} else {
			base = base + "_" + sid
		}
	}
	if base == "" {
		base = "candidate"
	}
	return base + ".json"
}

// SanitizeName keeps letters, digits, dashes and underscores. Spaces become underscores.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
