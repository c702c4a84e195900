package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileCandidate is a local file the user intends to upload. It is never mutated after
// construction.
type FileCandidate struct {
	Name      string
	Extension string
	Bytes     []byte
	SizeBytes uint64
}

// NewFileCandidate builds a candidate from a name and its contents.
func NewFileCandidate(name string, data []byte) *FileCandidate {
	return &FileCandidate{
		Name:      name,
		Extension: ExtensionOf(name),
		Bytes:     data,
		SizeBytes: uint64(len(data)),
	}
}

// LoadFileCandidate reads path from disk.
func LoadFileCandidate(path string) (*FileCandidate, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewFileCandidate(filepath.Base(path), data), nil
}

// ExtensionOf returns the lowercase substring after the last dot of name. A name
// without a dot yields the whole name, lowercased.
func ExtensionOf(name string) string {
	i := strings.LastIndex(name, ".")
	return strings.ToLower(name[i+1:])
}
