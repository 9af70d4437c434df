package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// IsTerminal reports whether the given file is attached to a terminal.
// Used to decide if interactive output such as the progress bar should draw.
func IsTerminal(file *os.File) bool {
	fileInfo, err := file.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// EnsureFilepathExists creates the directory portion of a file path if it
// does not exist yet.
func EnsureFilepathExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
