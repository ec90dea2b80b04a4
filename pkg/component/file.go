package component

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
)

// DefaultExtensions are the definition file extensions tried, in order.
var DefaultExtensions = []string{".yaml", ".yml", ".json"}

// FileSource loads component definitions from a file system.
//
// A path without a known extension is tried with each of Exts appended:
// "widgets/counter" finds "widgets/counter.yaml".
type FileSource struct {
	FS fs.FS

	// Exts overrides DefaultExtensions.
	Exts []string
}

// Load implements Loader.
func (s *FileSource) Load(ctx context.Context, p string) (Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := cleanPath(p)
	if !fs.ValidPath(name) {
		return nil, ErrNotFound
	}
	for _, candidate := range candidates(name, s.Exts) {
		data, err := fs.ReadFile(s.FS, candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, gerrors.New("G020").Withf("%s", p).Wrap(err)
		}
		return ParseDefinition(data, candidate)
	}
	return nil, ErrNotFound
}

// List returns the component paths available in the file system, without
// extensions.
func (s *FileSource) List() ([]string, error) {
	var out []string
	exts := extensions(s.Exts)
	err := fs.WalkDir(s.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		for _, ext := range exts {
			if strings.HasSuffix(p, ext) {
				out = append(out, strings.TrimSuffix(p, ext))
				break
			}
		}
		return nil
	})
	return out, err
}

// cleanPath turns a component path into a clean relative path that
// cannot escape the source's root.
func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func extensions(exts []string) []string {
	if len(exts) == 0 {
		return DefaultExtensions
	}
	return exts
}

// candidates returns the file names tried for name.
func candidates(name string, exts []string) []string {
	exts = extensions(exts)
	ext := path.Ext(name)
	for _, e := range exts {
		if ext == e {
			return []string{name}
		}
	}
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = name + e
	}
	return out
}
