// Package vfs implements the FileSystem capability the design treats as an
// external collaborator (§3, §4.2, §4.7): a small read/write/list interface
// that the header parser and the patch-apply path use instead of touching
// os directly, so a sideloaded PDB or a saved patch always goes through one
// seam.
package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// File is one directory entry as reported by Ls.
type File struct {
	Name  string
	IsDir bool
	Size  int64
}

// FileSystem is the capability surface the rest of the module depends on
// for all disk access (design §4.7: "read/write/ls/is_file/is_dir/pwd/cd").
type FileSystem interface {
	Pwd() (string, error)
	Cd(path string) error
	Ls(path string) ([]File, error)
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	IsFile(path string) bool
	IsDir(path string) bool
	Separator() string
}

// Local is the concrete, local-disk FileSystem implementation used by
// cmd/hexpatch. Writes take an advisory exclusive lock on platforms that
// support it (design §4.7, recovering the original's save-time lock).
type Local struct {
	cwd string
}

// NewLocal returns a Local rooted at the process's current working
// directory.
func NewLocal() (*Local, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return &Local{cwd: cwd}, nil
}

func (l *Local) Pwd() (string, error) {
	return l.cwd, nil
}

func (l *Local) Cd(path string) error {
	abs := l.resolve(path)
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "cd", Path: abs, Err: fs.ErrInvalid}
	}
	l.cwd = abs
	return nil
}

func (l *Local) Ls(path string) ([]File, error) {
	entries, err := os.ReadDir(l.resolve(path))
	if err != nil {
		return nil, err
	}
	out := make([]File, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		var size int64
		if err == nil {
			size = info.Size()
		}
		out = append(out, File{Name: e.Name(), IsDir: e.IsDir(), Size: size})
	}
	return out, nil
}

func (l *Local) Read(path string) ([]byte, error) {
	return os.ReadFile(l.resolve(path))
}

func (l *Local) Write(path string, data []byte) error {
	abs := l.resolve(path)
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	unlock := lockExclusive(f)
	defer unlock()

	_, err = f.Write(data)
	return err
}

func (l *Local) IsFile(path string) bool {
	info, err := os.Stat(l.resolve(path))
	return err == nil && !info.IsDir()
}

func (l *Local) IsDir(path string) bool {
	info, err := os.Stat(l.resolve(path))
	return err == nil && info.IsDir()
}

func (l *Local) Separator() string {
	return string(filepath.Separator)
}

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.cwd, path)
}
