package pkgfetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/open-edge-platform/openwrt-sbom/internal/utils/logger"
	"github.com/open-edge-platform/openwrt-sbom/internal/utils/network"
	"github.com/schollz/progressbar/v3"
)

// Options controls a single download.
type Options struct {
	Timeout  time.Duration
	Progress io.Writer // nil disables the progress bar
	Client   *http.Client
}

// IsURL reports whether location should be fetched rather than opened.
func IsURL(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// FetchFile downloads rawURL into destDir and returns the local path.
// The file keeps the last element of the URL path as its name.
func FetchFile(ctx context.Context, rawURL, destDir string, opts Options) (string, error) {
	log := logger.Logger()

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}

	client := opts.Client
	if client == nil {
		client = network.NewSecureHTTPClient(opts.Timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", rawURL, err)
	}

	log.Debugf("downloading %s", rawURL)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: bad status: %s", rawURL, resp.Status)
	}

	// ensure destination directory exists
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", destDir, err)
	}

	destPath := filepath.Join(destDir, name)
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", destPath, err)
	}

	var w io.Writer = out
	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(fmt.Sprintf("downloading %s", name)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		w = io.MultiWriter(out, bar)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("writing %s: %w", destPath, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	// buffered data may only fail to reach the disk on close
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("closing %s: %w", destPath, err)
	}

	log.Debugf("downloaded %s (%d bytes) to %s", rawURL, n, destPath)
	return destPath, nil
}
