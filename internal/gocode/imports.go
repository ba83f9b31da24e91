package gocode

import (
	"path"
	"strconv"
)

// ImportName returns the identifier f uses to refer to the package with importPath, and whether f imports it at all. A dot import returns ".", and an unnamed import
// returns the last element of importPath. Blank imports are ignored. f must be parsed.
func (f *File) ImportName(importPath string) (string, bool) {
	for _, spec := range f.AST.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil || p != importPath {
			continue
		}
		if spec.Name == nil {
			return path.Base(importPath), true
		}
		if spec.Name.Name == "_" {
			continue
		}
		return spec.Name.Name, true
	}
	return "", false
}
