package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Supported catalog encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

//go:embed default_catalog.json
var defaultCatalog []byte

// Default returns the snapshot built from the embedded sample catalog.
func Default() (*Snapshot, error) {
	return Parse(defaultCatalog, FormatJSON)
}

// Parse decodes a catalog in the given format and builds a snapshot.
func Parse(data []byte, format string) (*Snapshot, error) {
	var doc Document

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decoding json: %v", ErrInvalidCatalog, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decoding yaml: %v", ErrInvalidCatalog, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	return Build(doc)
}

// FormatFromPath infers the catalog encoding from a file name or URL path.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and builds a catalog from disk.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	snapshot, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"path":      path,
		"markets":   len(snapshot.markets),
		"locations": len(snapshot.locations),
		"digest":    snapshot.Digest(),
	}).Info("Catalog loaded")

	return snapshot, nil
}

// newRetryClient creates an HTTP client with retry capabilities
func newRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c
}

// Fetch downloads a published catalog once and builds a snapshot from it.
func Fetch(ctx context.Context, url string) (*Snapshot, error) {
	return fetchWith(ctx, newRetryClient(), url)
}

func fetchWith(ctx context.Context, client *retryablehttp.Client, url string) (*Snapshot, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	logrus.Debugf("Fetching catalog from %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog server error: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog body: %w", err)
	}

	format := FormatFromPath(req.URL.Path)
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		format = FormatYAML
	}

	snapshot, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", url, err)
	}

	logrus.WithFields(logrus.Fields{
		"url":     url,
		"markets": len(snapshot.markets),
		"digest":  snapshot.Digest(),
	}).Info("Catalog fetched")

	return snapshot, nil
}

// Open resolves a catalog source: an http(s) URL, a file path, or the
// embedded default when source is empty.
func Open(ctx context.Context, source string) (*Snapshot, error) {
	switch {
	case source == "":
		return Default()
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return Fetch(ctx, source)
	default:
		return LoadFile(source)
	}
}
