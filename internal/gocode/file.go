package gocode

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	"github.com/codalotl/inlinesnap/internal/snaperr"
)

// File is a Go test source file loaded into memory: its absolute path, raw contents, and parse artifacts. A File is ready to Parse when AbsolutePath and Contents
// are set. Byte offsets used by the rewriter are offsets into Contents.
type File struct {
	AbsolutePath string         // ex: '/path/to/foo_test.go'
	Contents     []byte         // full file contents
	PackageName  string         // the package name declared at the top of the file; set by Parse
	AST          *ast.File      // once parsed, we store the AST here; parsing does not mutate the AST
	FileSet      *token.FileSet // the FileSet used to parse the file
}

// ParseError reports that a source file could not be read or parsed. It wraps the underlying I/O or scanner error.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, snaperr.ErrParseUnavailable) match a *ParseError.
func (e *ParseError) Is(target error) bool {
	return target == snaperr.ErrParseUnavailable
}

// ReadFile reads and parses the file at path. path is made absolute. Any failure is returned as a *ParseError.
func ReadFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	contents, err := os.ReadFile(abs)
	if err != nil {
		return nil, &ParseError{Path: abs, Err: err}
	}
	f := &File{AbsolutePath: abs, Contents: contents}
	if _, err := f.Parse(nil); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse parses f.Contents and sets the AST, FileSet, and PackageName fields. If fset is nil, a new one is created. Failures are returned as a *ParseError and leave
// f unchanged.
func (f *File) Parse(fset *token.FileSet) (*ast.File, error) {
	if fset == nil {
		fset = token.NewFileSet()
	}
	parsed, err := parser.ParseFile(fset, f.AbsolutePath, f.Contents, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, &ParseError{Path: f.AbsolutePath, Err: err}
	}
	f.AST = parsed
	f.FileSet = fset
	f.PackageName = parsed.Name.Name
	return parsed, nil
}

// TokenFile returns the token.File for f. f must be parsed.
func (f *File) TokenFile() *token.File {
	return f.FileSet.File(f.AST.FileStart)
}

// Offset converts pos to a byte offset into f.Contents. f must be parsed.
func (f *File) Offset(pos token.Pos) int {
	return f.TokenFile().Offset(pos)
}

// Position converts pos to a line and column (both 1-based; column in bytes). f must be parsed.
func (f *File) Position(pos token.Pos) token.Position {
	return f.FileSet.Position(pos)
}

// LineStart returns the offset of the first byte of the 1-based line, or -1 if line is out of range.
func (f *File) LineStart(line int) int {
	tf := f.TokenFile()
	if line < 1 || line > tf.LineCount() {
		return -1
	}
	return tf.Offset(tf.LineStart(line))
}

// LineIndentation returns the leading spaces and tabs of the 1-based line.
func (f *File) LineIndentation(line int) string {
	start := f.LineStart(line)
	if start < 0 {
		return ""
	}
	end := start
	for end < len(f.Contents) && (f.Contents[end] == ' ' || f.Contents[end] == '\t') {
		end++
	}
	return string(f.Contents[start:end])
}

// LineText returns the text of the 1-based line without its line terminator.
func (f *File) LineText(line int) string {
	start := f.LineStart(line)
	if start < 0 {
		return ""
	}
	end := bytes.IndexByte(f.Contents[start:], '\n')
	if end < 0 {
		return string(f.Contents[start:])
	}
	return string(bytes.TrimSuffix(f.Contents[start:start+end], []byte("\r")))
}

// PersistNewContents writes newContents to f.AbsolutePath atomically and reparses f. If newContents equals f.Contents, nothing is written and changed is false.
func (f *File) PersistNewContents(newContents []byte) (changed bool, err error) {
	if bytes.Equal(newContents, f.Contents) {
		return false, nil
	}
	if err := WriteFileAtomic(f.AbsolutePath, newContents); err != nil {
		return false, snaperr.Wrap(snaperr.KindIO, "write source", err, "path", f.AbsolutePath)
	}
	next := &File{AbsolutePath: f.AbsolutePath, Contents: newContents}
	if _, err := next.Parse(nil); err != nil {
		// The write succeeded; keep the new contents so a retry does not rewrite the same bytes.
		f.Contents = newContents
		f.AST = nil
		f.FileSet = nil
		return true, err
	}
	*f = *next
	return true, nil
}

// WriteFileAtomic writes data to a temp file in path's directory and renames it over path, so readers never observe a partial file. The existing file's permissions
// are kept; new files get 0644.
func WriteFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".inlinesnap-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
