package gocode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// Module describes a Go module rooted at a directory containing a go.mod file.
type Module struct {
	Name         string // ex: "" or "github.com/foo/bar"
	AbsolutePath string // ex: "/path/to/module"
}

// FindModule returns the Module containing anyPath, which can be any folder or filename in the module. It finds the nearest go.mod walking upward.
func FindModule(anyPath string) (*Module, error) {
	root, err := findModuleRoot(anyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find module root: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}
	name := modfile.ModulePath(data)

	return &Module{Name: name, AbsolutePath: root}, nil
}

// Rel returns path relative to the module root, using forward slashes. Paths outside the module are returned unchanged.
func (m *Module) Rel(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(m.AbsolutePath, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// DisplayPath returns path relative to the root of the module containing it, or path itself when it is not inside a module.
func DisplayPath(path string) string {
	m, err := FindModule(path)
	if err != nil {
		return path
	}
	return m.Rel(path)
}

// findModuleRoot walks up from path until it finds a directory containing go.mod.
func findModuleRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found above %s", abs)
		}
		dir = parent
	}
}
