// Package storage is the distribution boundary for route table artifacts:
// how compiled tables move from the control plane that built them to the
// serving processes that load them.
//
// Stores deal in opaque bytes under slash-separated object paths. The
// versioned path schema (routes/<version>.rtbl) makes "what is the newest
// table" a pure listing question, so readers need no coordination with
// writers beyond eventual visibility of a completed Put.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ArtifactPrefix is the object path prefix all route table artifacts
	// live under.
	ArtifactPrefix = "routes/"

	// ArtifactExt is the artifact object extension.
	ArtifactExt = ".rtbl"

	// CompressedExt tails artifacts stored zstd-compressed at rest.
	CompressedExt = ".rtbl.zst"
)

var (
	ErrArtifactNotFound = errors.New("storage: artifact not found")
	ErrNoArtifacts      = errors.New("storage: no artifacts under prefix")
	ErrBadArtifactPath  = errors.New("storage: path does not match the artifact schema")
)

// ArtifactReader is the read side of a store.
type ArtifactReader interface {
	// Get returns the object bytes, or ErrArtifactNotFound.
	Get(ctx context.Context, path string) ([]byte, error)

	// List returns the object paths under prefix, in unspecified order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ArtifactWriter is the write side of a store. Put must be all-or-nothing:
// a reader never observes a partially written object.
type ArtifactWriter interface {
	Put(ctx context.Context, path string, data []byte) error
}

// Store combines both sides.
type Store interface {
	ArtifactReader
	ArtifactWriter
}

// ArtifactPath returns the object path for a version. Versions are rendered
// as fixed-width hex so lexical object ordering matches numeric ordering.
func ArtifactPath(version uint64) string {
	return fmt.Sprintf("%s%016x%s", ArtifactPrefix, version, ArtifactExt)
}

// SealPath returns the object path of the checkpoint envelope for a version.
func SealPath(version uint64) string {
	return fmt.Sprintf("%s%016x.seal", ArtifactPrefix, version)
}

// ParseArtifactVersion extracts the version from an artifact object path,
// compressed or not. Seal objects and foreign paths are ErrBadArtifactPath.
func ParseArtifactVersion(path string) (uint64, error) {
	rest, ok := strings.CutPrefix(path, ArtifactPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadArtifactPath, path)
	}
	var hex string
	switch {
	case strings.HasSuffix(rest, CompressedExt):
		hex = strings.TrimSuffix(rest, CompressedExt)
	case strings.HasSuffix(rest, ArtifactExt):
		hex = strings.TrimSuffix(rest, ArtifactExt)
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadArtifactPath, path)
	}
	version, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadArtifactPath, path)
	}
	return version, nil
}

// LatestArtifact lists the artifact prefix and returns the highest version
// and its object path. ErrNoArtifacts when the prefix is empty. Objects that
// do not match the schema are skipped, so seals and artifacts can share the
// prefix.
func LatestArtifact(ctx context.Context, r ArtifactReader) (uint64, string, error) {
	paths, err := r.List(ctx, ArtifactPrefix)
	if err != nil {
		return 0, "", err
	}
	var (
		best     uint64
		bestPath string
		found    bool
	)
	for _, p := range paths {
		version, err := ParseArtifactVersion(p)
		if err != nil {
			continue
		}
		if !found || version > best {
			best, bestPath, found = version, p, true
		}
	}
	if !found {
		return 0, "", ErrNoArtifacts
	}
	return best, bestPath, nil
}
