package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GenerateUniqueFilename returns a timestamped, sanitized filename that does
// not collide with an existing file in dir.
func GenerateUniqueFilename(dir, original string) string {
	base := sanitizeFilename(filepath.Base(original))
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base)

	candidate := name
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		ext := filepath.Ext(name)
		candidate = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i, ext)
	}
}

func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if cleaned == "" || strings.Trim(cleaned, "._") == "" {
		return "upload.csv"
	}
	return cleaned
}
