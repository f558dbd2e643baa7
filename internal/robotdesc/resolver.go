// File: internal/robotdesc/resolver.go
package robotdesc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrNotFound is returned when a model file exists under none of the candidate locations.
var ErrNotFound = errors.New("robot model file not found")

// Resolver locates URDF and SRDF files. Documents write model paths such as
// "/talos_data/robots/talos_reduced.urdf", which are relative to a model
// directory rather than to the filesystem root, so each search path is
// tried as a prefix after the value itself.
type Resolver struct {
	SearchPaths []string
}

// NewResolver creates a Resolver over the given search paths. "~" in a path
// is expanded to the user's home directory at resolve time.
func NewResolver(searchPaths ...string) *Resolver {
	return &Resolver{SearchPaths: searchPaths}
}

// Resolve returns the first existing regular file for value.
func (r *Resolver) Resolve(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("empty model path: %w", ErrNotFound)
	}
	expanded, err := homedir.Expand(value)
	if err != nil {
		return "", fmt.Errorf("could not expand model path '%s': %w", value, err)
	}

	candidates := []string{expanded}
	for _, sp := range r.SearchPaths {
		dir, err := homedir.Expand(sp)
		if err != nil {
			return "", fmt.Errorf("could not expand search path '%s': %w", sp, err)
		}
		candidates = append(candidates, filepath.Join(dir, expanded))
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("error accessing model file '%s': %w", c, err)
		}
		if info.IsDir() {
			continue
		}
		return c, nil
	}
	return "", fmt.Errorf("%w: '%s' (tried %s)", ErrNotFound, value, strings.Join(candidates, ", "))
}
