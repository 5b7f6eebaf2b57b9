// Package snapshot downloads the weekly bulk dump of known system
// addresses and builds a presence index from it.
//
// The index is purely a cost-saving signal for the incomplete pass:
// a system present in the snapshot was touched upstream recently and is
// worth re-fetching. Absence is never proof that nothing changed; a run
// with a nil index behaves identically, just with more fetches.
package snapshot

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/canonn-science/firmament/internal/config"
)

// Index is a presence set of system addresses from the weekly snapshot.
type Index struct {
	ids map[int64]struct{}
}

// NewIndex builds an index from a list of addresses. Used by tests and by
// Download.
func NewIndex(ids []int64) *Index {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &Index{ids: m}
}

// Contains reports whether the snapshot includes the given address.
func (i *Index) Contains(id64 int64) bool {
	_, ok := i.ids[id64]
	return ok
}

// Len returns the number of addresses in the index.
func (i *Index) Len() int {
	return len(i.ids)
}

// Downloader fetches and parses the compressed weekly snapshot.
type Downloader struct {
	httpClient *http.Client
	url        string
}

// NewDownloader creates a snapshot downloader from configuration.
func NewDownloader(cfg *config.SnapshotConfig) *Downloader {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
	}
}

// Download fetches the gzip-compressed snapshot, decompresses it, and
// extracts every id64 into a presence index. The snapshot is a JSON array
// of system objects; only the id64 field is read.
func (d *Downloader) Download(ctx context.Context) (*Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot download failed: %s", resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return parseSnapshot(data)
}

// parseSnapshot extracts id64 values from the decompressed JSON array.
func parseSnapshot(data []byte) (*Index, error) {
	parsed := gjson.GetBytes(data, "#.id64")
	if !parsed.Exists() {
		return nil, fmt.Errorf("snapshot is not a JSON array of systems")
	}

	entries := parsed.Array()
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.Int())
	}

	return NewIndex(ids), nil
}
