// Package ingest reads BED12 sources, normalizes every record in parallel and
// partitions the resulting transcripts by chromosome.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/inodb/packbed/internal/bed"
)

// Source is one input file, optionally tagged with a provenance role.
type Source struct {
	Path string
	Role bed.Role
}

// allowedExtensions are the suffixes accepted for input files.
var allowedExtensions = []string{".bed", ".bed12", ".bed.gz", ".bed12.gz"}

// Validation errors returned by ValidateSource.
var (
	ErrNotRegular   = errors.New("not a regular file")
	ErrBadExtension = errors.New("unsupported file extension")
	ErrEmptySource  = errors.New("file is empty")
	ErrNoSources    = errors.New("no input files given")
	ErrRoleMismatch = errors.New("number of roles does not match number of inputs")
)

// ValidateSource checks that path exists, is a non-empty regular file, and has
// an accepted extension.
func ValidateSource(path string) error {
	if !HasAllowedExtension(path) {
		return fmt.Errorf("%s: %w (want one of %s)", path, ErrBadExtension, strings.Join(allowedExtensions, ", "))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: %w", path, ErrEmptySource)
	}
	return nil
}

// HasAllowedExtension reports whether path ends with an accepted suffix.
func HasAllowedExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// NewSources pairs paths with roles. roles may be empty (no provenance), a
// single role applied to every path, or exactly one role per path.
func NewSources(paths, roles []string) ([]Source, error) {
	if len(paths) == 0 {
		return nil, ErrNoSources
	}
	if len(roles) > 1 && len(roles) != len(paths) {
		return nil, fmt.Errorf("%w: %d inputs, %d roles", ErrRoleMismatch, len(paths), len(roles))
	}

	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i].Path = p
		var name string
		switch len(roles) {
		case 0:
		case 1:
			name = roles[0]
		default:
			name = roles[i]
		}
		role, err := bed.ParseRole(name)
		if err != nil {
			return nil, err
		}
		sources[i].Role = role
	}
	return sources, nil
}
