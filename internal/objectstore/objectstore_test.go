package objectstore

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqbench/seqbench/pkg/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("primary", "Primary disk storage", t.TempDir())
	require.NoError(t, err)
	return s
}

func TestPutOpenRoundTrip(t *testing.T) {
	s := newStore(t)

	n, err := s.Put("d1", strings.NewReader("ACGT"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	size, err := s.Size("d1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)

	r, err := s.Open("d1")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", string(data))

	_, err = s.Open("missing")
	assert.Error(t, err)
}

func TestExtraFilesListing(t *testing.T) {
	s := newStore(t)

	entries, err := s.ExtraFiles("d1")
	require.NoError(t, err)
	assert.Equal(t, []models.ExtraFileEntry{}, entries)

	require.NoError(t, s.PutExtraFile("d1", "summary.txt", strings.NewReader("x")))
	require.NoError(t, s.PutExtraFile("d1", "plots/plot1.png", strings.NewReader("y")))

	entries, err = s.ExtraFiles("d1")
	require.NoError(t, err)
	assert.Equal(t, []models.ExtraFileEntry{
		{Class: "Directory", Path: "plots"},
		{Class: "File", Path: "plots/plot1.png"},
		{Class: "File", Path: "summary.txt"},
	}, entries)

	r, err := s.OpenExtraFile("d1", "plots/plot1.png")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))
}

func TestExtraFilePathEscapeRejected(t *testing.T) {
	s := newStore(t)

	err := s.PutExtraFile("d1", "../../etc/passwd", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = s.OpenExtraFile("d1", "../d2_files/secret")
	assert.Error(t, err)
}

func TestMetadataFiles(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.PutMetadata("d1", "bai", strings.NewReader("index")))

	path, err := s.MetadataPath("d1", "bai")
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = s.MetadataPath("d1", "missing")
	assert.Error(t, err)

	_, err = s.MetadataPath("d1", "../escape")
	assert.Error(t, err)
	assert.Error(t, s.PutMetadata("d1", "a/b", strings.NewReader("x")))
}
