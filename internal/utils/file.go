package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// DefaultImageExtensions are the upload formats accepted by default.
var DefaultImageExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// AllowedFile reports whether filename has one of the allowed extensions.
func AllowedFile(filename string, allowed []string) bool {
	ext := GetFileExtension(filename)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(ext, strings.TrimPrefix(a, ".")) {
			return true
		}
	}
	return false
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	return AllowedFile(filename, DefaultImageExtensions)
}

// SanitizeFilename reduces a client supplied name to a safe ASCII file name:
// accents are folded, separators and other unsafe characters become
// underscores, and leading dots are dropped.
func SanitizeFilename(filename string) string {
	// keep only the last path element, whatever the client OS
	filename = filename[strings.LastIndexAny(filename, `/\`)+1:]

	var b strings.Builder
	for _, r := range norm.NFKD.String(filename) {
		switch {
		case r > unicode.MaxASCII || unicode.Is(unicode.Mn, r):
			continue
		case r == '.' || r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return strings.Trim(b.String(), "._")
}

// GenerateUniqueFilename returns {base}_{YYYYmmdd_HHMMSS}_{uuid8}{ext} for an
// uploaded file name. A name that sanitizes to nothing uses "upload".
func GenerateUniqueFilename(filename string, now time.Time) string {
	name := filename[strings.LastIndexAny(filename, `/\`)+1:]
	ext := ""
	if e := SanitizeFilename(filepath.Ext(name)); e != "" {
		ext = "." + strings.ToLower(e)
	}
	base := SanitizeFilename(strings.TrimSuffix(name, filepath.Ext(name)))
	if base == "" {
		base = "upload"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s%s", base, now.Format("20060102_150405"), id, ext)
}

// GenerateOutputFilename generates an output filename based on input and parameters
func GenerateOutputFilename(inputFile, outputDir, prefix, format string) string {
	baseName := filepath.Base(inputFile)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	if format == "" {
		format = GetFileExtension(inputFile)
		if format == "" {
			format = "jpg"
		}
	}

	outputName := fmt.Sprintf("%s%s.%s", prefix, nameWithoutExt, format)
	return filepath.Join(outputDir, outputName)
}

// ListImageFiles recursively lists all image files in a directory
func ListImageFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && info.IsDir()
}

// SweepOlderThan deletes regular files directly inside dir whose
// modification time is before cutoff and returns how many were removed.
// Subdirectories are left alone.
func SweepOlderThan(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
