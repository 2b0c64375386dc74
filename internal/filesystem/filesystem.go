// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filesystem provides the filesystem capability used by the manifest
// store, the link reconciler, and the update cycle. It is backed by afero so
// tests can run against an in-memory tree where symlinks are not needed.
package filesystem

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FS is the set of filesystem primitives the linking core relies on.
type FS interface {
	// Exists reports whether path exists, following symlinks.
	Exists(path string) (bool, error)

	// MkdirAll creates path and any missing parents. Existing directories
	// are not an error.
	MkdirAll(path string) error

	// Symlink creates linkName pointing at target.
	Symlink(target, linkName string) error

	WriteFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)

	// ReadDir returns the sorted names of the entries in dir.
	ReadDir(dir string) ([]string, error)

	// Remove deletes a single file, empty directory, or symlink.
	Remove(path string) error
}

// Ensure Afero implements FS at compile time.
var _ FS = (*Afero)(nil)

// Afero implements FS on top of an afero.Fs.
type Afero struct {
	fs afero.Fs
}

// New wraps fsys.
func New(fsys afero.Fs) *Afero {
	return &Afero{fs: fsys}
}

// NewOS returns an FS backed by the operating system.
func NewOS() *Afero {
	return New(afero.NewOsFs())
}

func (a *Afero) Exists(path string) (bool, error) {
	return afero.Exists(a.fs, path)
}

func (a *Afero) MkdirAll(path string) error {
	return a.fs.MkdirAll(path, dirPerm)
}

func (a *Afero) Symlink(target, linkName string) error {
	linker, ok := a.fs.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: target, New: linkName, Err: afero.ErrNoSymlink}
	}
	return linker.SymlinkIfPossible(target, linkName)
}

func (a *Afero) WriteFile(path string, data []byte) error {
	return afero.WriteFile(a.fs, path, data, filePerm)
}

func (a *Afero) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(a.fs, path)
}

func (a *Afero) ReadDir(dir string) ([]string, error) {
	f, err := a.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	sort.Strings(names)
	return names, nil
}

func (a *Afero) Remove(path string) error {
	return a.fs.Remove(path)
}
