// Package reorg normalizes the directory tree deposited by a filing provider:
// it renames known raw artifacts after their ticker and report type and then
// flattens nested directories into their parents.
package reorg

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mfenderov/filingflow/internal/failure"
)

// KnownArtifacts are the raw file names a provider writes per filing.
var KnownArtifacts = []string{"primary-document.html", "full-submission.txt"}

// ArtifactPath describes a raw artifact laid out as
// ROOT/TICKER/REPORT_TYPE/ACCESSION/NAME.
type ArtifactPath struct {
	Root       string
	Ticker     string
	ReportType string
	Accession  string
	Name       string
}

// ParseArtifactPath validates that path sits exactly four levels below root
// and returns its components.
func ParseArtifactPath(root, path string) (ArtifactPath, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ArtifactPath{}, err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 || slices.Contains(parts, "..") {
		return ArtifactPath{}, fmt.Errorf("artifact %s: want TICKER/REPORT_TYPE/ACCESSION/NAME, got %d components", rel, len(parts))
	}
	for _, p := range parts {
		if p == "" || p == "." {
			return ArtifactPath{}, fmt.Errorf("artifact %s: empty path component", rel)
		}
	}
	return ArtifactPath{
		Root:       root,
		Ticker:     parts[0],
		ReportType: parts[1],
		Accession:  parts[2],
		Name:       parts[3],
	}, nil
}

// Dir returns the directory holding the artifact.
func (a ArtifactPath) Dir() string {
	return filepath.Join(a.Root, a.Ticker, a.ReportType, a.Accession)
}

// Path returns the artifact's current location.
func (a ArtifactPath) Path() string {
	return filepath.Join(a.Dir(), a.Name)
}

// RenamedName is the artifact's normalized name, TICKER_REPORT_TYPE.ext.
func (a ArtifactPath) RenamedName() string {
	ext := a.Name[strings.LastIndex(a.Name, ".")+1:]
	return fmt.Sprintf("%s_%s.%s", strings.ToUpper(a.Ticker), a.ReportType, ext)
}

// Reorganizer applies the rename and flatten passes.
type Reorganizer struct {
	logger *slog.Logger
}

// New creates a Reorganizer.
func New(logger *slog.Logger) *Reorganizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reorganizer{logger: logger}
}

// RenameKnownArtifacts renames every known artifact under root in place and
// returns the new paths. Artifacts that are not at the expected depth are
// skipped with a warning; an existing destination is never overwritten.
func (r *Reorganizer) RenameKnownArtifacts(root string) ([]string, error) {
	r.logger.Info("Started processing folder", "folder", root)

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && slices.Contains(KnownArtifacts, d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, failure.Filesystem("walk provider tree", root, err)
	}

	var renamed []string
	for _, path := range found {
		a, err := ParseArtifactPath(root, path)
		if err != nil {
			r.logger.Warn("skipping artifact outside provider layout", "path", path, "error", err)
			continue
		}

		dst := filepath.Join(a.Dir(), a.RenamedName())
		if exists, err := exists(dst); err != nil {
			return renamed, failure.Filesystem("stat", dst, err)
		} else if exists {
			r.logger.Warn("rename target exists, leaving artifact in place",
				"kind", failure.PathCollision, "source", path, "destination", dst)
			continue
		}

		r.logger.Debug("renaming artifact", "source", path, "destination", dst)
		if err := os.Rename(path, dst); err != nil {
			return renamed, failure.Filesystem("rename artifact", path, err)
		}
		renamed = append(renamed, dst)
	}

	r.logger.Info("Finished processing folder", "folder", root, "renamed", len(renamed))
	return renamed, nil
}

// FlattenToParent moves every file below root up one directory, children
// first, and removes directories left empty. Files whose destination name is
// already taken stay where they are. Root itself is neither moved from nor
// removed.
func (r *Reorganizer) FlattenToParent(root string) error {
	r.logger.Info("Moving files to parent folder", "path", root)

	entries, err := os.ReadDir(root)
	if err != nil {
		return failure.Filesystem("read directory", root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := r.flatten(filepath.Join(root, e.Name())); err != nil {
				return err
			}
		}
	}

	r.logger.Debug("finished moving files", "path", root)
	return nil
}

// flatten lists dir before descending, so files promoted into dir by its
// children are not promoted a second time in the same pass.
func (r *Reorganizer) flatten(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return failure.Filesystem("read directory", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			if err := r.flatten(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}

	parent := filepath.Dir(dir)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(dir, e.Name())
		dst := filepath.Join(parent, e.Name())

		taken, err := exists(dst)
		if err != nil {
			return failure.Filesystem("stat", dst, err)
		}
		if taken {
			r.logger.Warn("destination exists, leaving file in place",
				"kind", failure.PathCollision, "source", src, "destination", dst)
			continue
		}

		r.logger.Debug("moving file", "source", src, "destination", dst)
		if err := os.Rename(src, dst); err != nil {
			return failure.Filesystem("move file", src, err)
		}
	}

	remaining, err := os.ReadDir(dir)
	if err != nil {
		return failure.Filesystem("read directory", dir, err)
	}
	if len(remaining) == 0 {
		r.logger.Debug("removing empty directory", "path", dir)
		if err := os.Remove(dir); err != nil {
			return failure.Filesystem("remove directory", dir, err)
		}
	}
	return nil
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
