// Package objectstore provides the disk-backed payload store datasets are
// served from. Layout under the root directory:
//
//	datasets/<id>.dat          primary payload
//	datasets/<id>_files/       extra files of composite datasets
//	metadata/<id>_<name>       named metadata files
package objectstore

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/seqbench/seqbench/pkg/models"
)

// Store resolves dataset payloads on local disk.
type Store struct {
	id   string
	name string
	root string
}

// New creates a Store rooted at dir, creating the layout if needed.
func New(id, name, dir string) (*Store, error) {
	for _, sub := range []string{"datasets", "metadata"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("objectstore: init %s: %w", sub, err)
		}
	}
	return &Store{id: id, name: name, root: dir}, nil
}

// ID returns the store identifier exposed in storage descriptors.
func (s *Store) ID() string { return s.id }

// Name returns the user-facing store name.
func (s *Store) Name() string { return s.name }

func (s *Store) datasetPath(datasetID string) string {
	return filepath.Join(s.root, "datasets", datasetID+".dat")
}

func (s *Store) extraFilesDir(datasetID string) string {
	return filepath.Join(s.root, "datasets", datasetID+"_files")
}

// Open returns a reader over the dataset payload.
func (s *Store) Open(datasetID string) (io.ReadCloser, error) {
	return os.Open(s.datasetPath(datasetID))
}

// Size returns the payload size in bytes.
func (s *Store) Size(datasetID string) (int64, error) {
	info, err := os.Stat(s.datasetPath(datasetID))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Put writes a dataset payload, replacing any existing one.
func (s *Store) Put(datasetID string, r io.Reader) (int64, error) {
	f, err := os.Create(s.datasetPath(datasetID))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// PutExtraFile writes a file under the dataset's extra-files directory.
// The relative path may contain subdirectories but must not escape the
// directory.
func (s *Store) PutExtraFile(datasetID, rel string, r io.Reader) error {
	path, err := s.extraFilePath(datasetID, rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenExtraFile returns a reader over one extra file.
func (s *Store) OpenExtraFile(datasetID, rel string) (io.ReadCloser, error) {
	path, err := s.extraFilePath(datasetID, rel)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s *Store) extraFilePath(datasetID, rel string) (string, error) {
	dir := s.extraFilesDir(datasetID)
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if path != dir && !strings.HasPrefix(path, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("objectstore: extra file path %q escapes dataset directory", rel)
	}
	return path, nil
}

// ExtraFiles lists the files and directories under the dataset's extra-files
// directory, relative slash-separated paths, sorted by walk order. A dataset
// without extra files yields an empty list.
func (s *Store) ExtraFiles(datasetID string) ([]models.ExtraFileEntry, error) {
	dir := s.extraFilesDir(datasetID)
	var entries []models.ExtraFileEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		class := "File"
		if d.IsDir() {
			class = "Directory"
		}
		entries = append(entries, models.ExtraFileEntry{Class: class, Path: filepath.ToSlash(rel)})
		return nil
	})
	if os.IsNotExist(err) {
		return []models.ExtraFileEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ExtraFileEntry{}
	}
	return entries, nil
}

// MetadataPath returns the path of a named metadata file, which must exist.
func (s *Store) MetadataPath(datasetID, name string) (string, error) {
	if strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("objectstore: invalid metadata file name %q", name)
	}
	path := filepath.Join(s.root, "metadata", datasetID+"_"+name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// PutMetadata writes a named metadata file for a dataset.
func (s *Store) PutMetadata(datasetID, name string, r io.Reader) error {
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("objectstore: invalid metadata file name %q", name)
	}
	f, err := os.Create(filepath.Join(s.root, "metadata", datasetID+"_"+name))
	if err != nil {
		return err
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
