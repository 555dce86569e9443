package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
)

// Provider resolves the full item catalog. Implementations cache for
// the process lifetime; the queue engine never re-fetches mid-session.
type Provider interface {
	FetchCatalog(ctx context.Context) ([]Item, error)
}

// catalogDocument is the on-disk/wire shape of the catalog.
type catalogDocument struct {
	Folders []Item `json:"folders"`
}

// HTTPProvider fetches the catalog JSON document from a URL once and
// caches it.
type HTTPProvider struct {
	url    string
	client *http.Client

	mu    sync.Mutex
	cache []Item
}

// NewHTTPProvider creates a provider for the given catalog URL. A nil
// client uses http.DefaultClient.
func NewHTTPProvider(url string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{url: url, client: client}
}

func (p *HTTPProvider) FetchCatalog(ctx context.Context) ([]Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil {
		return p.cache, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, &ErrContentLoad{Source: p.url, Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ErrContentLoad{Source: p.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrContentLoad{Source: p.url, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	var doc catalogDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &ErrContentLoad{Source: p.url, Err: err}
	}

	p.cache = doc.Folders
	return p.cache, nil
}

// ClearCache drops the cached catalog so the next fetch hits the source.
func (p *HTTPProvider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = nil
}

// FileProvider reads the catalog JSON document from local disk once
// and caches it. Used when the shell bundles content with the app.
type FileProvider struct {
	path string

	mu    sync.Mutex
	cache []Item
}

// NewFileProvider creates a provider for the given catalog file.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) FetchCatalog(_ context.Context) ([]Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil {
		return p.cache, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, &ErrContentLoad{Source: p.path, Err: err}
	}

	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ErrContentLoad{Source: p.path, Err: err}
	}

	p.cache = doc.Folders
	return p.cache, nil
}

// ClearCache drops the cached catalog.
func (p *FileProvider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = nil
}
