package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	simerrors "github.com/wippyai/sim-bridge/errors"
)

// Compiler turns artifact bytes into a model.
type Compiler interface {
	Compile(ctx context.Context, name string, artifact []byte) (Model, error)
}

// ValidateName rejects model names that could escape an artifact store.
func ValidateName(name string) error {
	switch {
	case name == "":
		return simerrors.InvalidInput(simerrors.PhaseLoad, "empty model name")
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."), strings.HasPrefix(name, "."):
		return simerrors.InvalidInput(simerrors.PhaseLoad, "model name "+name+" is not a plain name")
	}
	return nil
}

// DirStore loads "<Dir>/<name><Ext>" artifacts and compiles them.
type DirStore struct {
	Compiler Compiler
	Dir      string
	Ext      string
}

// NewDirStore creates a store rooted at dir.
func NewDirStore(dir, ext string, c Compiler) *DirStore {
	return &DirStore{Dir: dir, Ext: ext, Compiler: c}
}

// Path returns the artifact path for name.
func (s *DirStore) Path(name string) string {
	return filepath.Join(s.Dir, name+s.Ext)
}

// Load reads and compiles the artifact for name.
func (s *DirStore) Load(ctx context.Context, name string) (Model, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if s.Dir == "" {
		return nil, simerrors.NotFound(simerrors.PhaseLoad, "model", name)
	}

	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, simerrors.NotFound(simerrors.PhaseLoad, "model", name)
		}
		return nil, simerrors.Load("read "+path, err)
	}

	Logger().Debug("compiling model artifact",
		zap.String("model", name),
		zap.String("path", path),
		zap.Int("size", len(data)))

	return s.Compiler.Compile(ctx, name, data)
}

// Chain tries each loader in order and returns the first model found.
// Errors other than not_found stop the search.
func Chain(loaders ...Loader) Loader {
	return LoaderFunc(func(ctx context.Context, name string) (Model, error) {
		for _, l := range loaders {
			m, err := l.Load(ctx, name)
			if err == nil {
				return m, nil
			}
			if !errors.Is(err, simerrors.ErrNotFound) {
				return nil, err
			}
		}
		return nil, simerrors.NotFound(simerrors.PhaseLoad, "model", name)
	})
}
