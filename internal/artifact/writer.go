// Package artifact persists the final generated code of a run.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

// MaxNameLength bounds the sanitized file stem.
const MaxNameLength = 50

// fallbackName is used when sanitizing leaves nothing.
const fallbackName = "generated-code"

// ErrWriteFailed wraps every failure to persist an artifact.
var ErrWriteFailed = errors.New("failed to write artifact")

var (
	disallowedChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	separatorRuns   = regexp.MustCompile(`[-\s]+`)
)

// SanitizeName derives a filesystem safe stem from free text: lower case,
// everything outside [a-z0-9-] and whitespace dropped, whitespace and hyphen
// runs collapsed to one hyphen, cut to MaxNameLength. The result only
// contains [a-z0-9-] and SanitizeName(SanitizeName(s)) == SanitizeName(s).
func SanitizeName(text string) string {
	s := strings.ToLower(text)
	s = disallowedChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = separatorRuns.ReplaceAllString(s, "-")
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	return strings.Trim(s, "-")
}

// extensions maps requirement languages onto file extensions.
var extensions = map[string]string{
	"python":     ".py",
	"python3":    ".py",
	"py":         ".py",
	"go":         ".go",
	"javascript": ".js",
	"typescript": ".ts",
	"rust":       ".rs",
	"java":       ".java",
	"bash":       ".sh",
	"shell":      ".sh",
}

// ExtensionFor returns the file extension for a language, ".txt" when unknown.
func ExtensionFor(language string) string {
	if ext, ok := extensions[strings.ToLower(strings.TrimSpace(language))]; ok {
		return ext
	}
	return ".txt"
}

// Writer saves artifacts under one output directory.
type Writer struct {
	dir    string
	ext    string
	logger *zap.Logger
}

var _ schemas.ArtifactWriter = (*Writer)(nil)

// NewWriter creates a writer for dir. Files get the extension of language.
func NewWriter(dir, language string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, ext: ExtensionFor(language), logger: logger.Named("artifact")}
}

// Save writes content to <dir>/<sanitized name><ext> and returns the path.
// The file is written to a temporary sibling first and renamed into place,
// so a failed write never leaves a truncated artifact behind.
func (w *Writer) Save(name, content string) (string, error) {
	stem := SanitizeName(name)
	if stem == "" {
		stem = fallbackName
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create output directory %s: %v", ErrWriteFailed, w.dir, err)
	}

	path := filepath.Join(w.dir, stem+w.ext)
	tmp, err := os.CreateTemp(w.dir, "."+stem+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: failed to write %s: %v", ErrWriteFailed, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to close %s: %v", ErrWriteFailed, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to set permissions on %s: %v", ErrWriteFailed, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("%w: failed to move artifact into place: %v", ErrWriteFailed, err)
	}

	w.logger.Info("Artifact saved", zap.String("path", path), zap.Int("bytes", len(content)))
	return path, nil
}
