// Package projectfs reads a project's own files over an fs.FS instead of
// calling os.ReadFile directly.
package projectfs

import (
	"io"
	"io/fs"
	"os"
)

// Project is a package rooted at a directory on disk, exposed as an fs.FS
// so callers don't need to know it's backed by the real filesystem.
type Project struct {
	Dir   string
	DirFS fs.FS
}

// Open returns a Project rooted at dir.
func Open(dir string) *Project {
	return &Project{Dir: dir, DirFS: os.DirFS(dir)}
}

// ReadFile reads the content of a project-relative path.
func (p *Project) ReadFile(path string) ([]byte, error) {
	file, err := p.DirFS.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// Exists reports whether a project-relative path exists.
func (p *Project) Exists(path string) bool {
	_, err := fs.Stat(p.DirFS, path)
	return err == nil
}
