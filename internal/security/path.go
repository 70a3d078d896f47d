package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePath rejects paths with traversal components or embedded NUL
// bytes. Absolute paths are allowed; the database and config files are
// commonly configured with them.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains NUL byte")
	}
	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}
	return nil
}
