// Package utils holds filesystem helpers shared by the silc commands.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// SiblingPath returns the path next to relPath with its extension replaced
// by ext, e.g. ("examples/fib.sil", ".s") -> "/abs/examples/fib.s".
func SiblingPath(relPath, ext string) (string, error) {
	fullPath, parentDir, err := GetPathInfo(relPath)
	if err != nil {
		return "", err
	}
	base := filepath.Base(fullPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(parentDir, base+ext), nil
}

// ReadSource reads a source file and returns its absolute path and text.
func ReadSource(relPath string) (fullPath string, src string, err error) {
	fullPath, _, err = GetPathInfo(relPath)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", "", err
	}
	return fullPath, string(data), nil
}
