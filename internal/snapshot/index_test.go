package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonn-science/firmament/internal/config"
)

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestIndex_Contains(t *testing.T) {
	idx := NewIndex([]int64{10, 20, 30})

	assert.True(t, idx.Contains(10))
	assert.True(t, idx.Contains(30))
	assert.False(t, idx.Contains(40))
	assert.Equal(t, 3, idx.Len())
}

func TestIndex_Empty(t *testing.T) {
	idx := NewIndex(nil)
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Contains(1))
}

func TestParseSnapshot(t *testing.T) {
	data := `[
		{"id64": 3238296097059, "name": "Merope"},
		{"id64": 670149253465, "name": "Witch Head Sector"},
		{"id64": 9223372036854775807, "name": "Edge"}
	]`

	idx, err := parseSnapshot([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.True(t, idx.Contains(3238296097059))
	assert.True(t, idx.Contains(9223372036854775807))
	assert.False(t, idx.Contains(12345))
}

func TestParseSnapshot_NotAnArray(t *testing.T) {
	_, err := parseSnapshot([]byte(`{"id64": 1}`))
	assert.Error(t, err)
}

func TestDownloader_Download(t *testing.T) {
	payload := gzipBytes(t, `[{"id64": 1}, {"id64": 2}, {"id64": 3}]`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	d := NewDownloader(&config.SnapshotConfig{URL: srv.URL, TimeoutSeconds: 5})
	idx, err := d.Download(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.True(t, idx.Contains(2))
}

func TestDownloader_Download_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewDownloader(&config.SnapshotConfig{URL: srv.URL})
	_, err := d.Download(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot download failed")
}

func TestDownloader_Download_NotGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id64": 1}]`))
	}))
	defer srv.Close()

	d := NewDownloader(&config.SnapshotConfig{URL: srv.URL})
	_, err := d.Download(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decompress")
}
