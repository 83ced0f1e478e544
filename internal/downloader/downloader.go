// Package downloader fetches remote tracks and assets given as http(s)
// URLs so the rest of the pipeline only deals with local files.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/olivier-w/beatboy/internal/archive"
	"github.com/olivier-w/beatboy/internal/logging"
)

var (
	httpClient = &http.Client{Timeout: 5 * time.Minute}

	// maxBytes caps a single download.
	maxBytes int64 = 1 << 30
)

// IsURL reports whether arg looks like an http(s) URL.
func IsURL(arg string) bool {
	s := strings.ToLower(strings.TrimSpace(arg))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Result describes a finished download.
type Result struct {
	Path string // local file
	Name string // display name from the URL, without extension
	Kind Kind
}

// Open starts a GET for rawURL. The caller closes the body.
func Open(ctx context.Context, rawURL string) (io.ReadCloser, Kind, error) {
	normalized, err := normalizeAndValidateURL(rawURL)
	if err != nil {
		return nil, KindUnknown, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return nil, KindUnknown, err
	}
	req.Header.Set("User-Agent", "beatboy")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, KindUnknown, fmt.Errorf("fetching %s: %w", normalized, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, KindUnknown, fmt.Errorf("fetching %s: %s", normalized, resp.Status)
	}
	if resp.ContentLength > maxBytes {
		resp.Body.Close()
		return nil, KindUnknown, fmt.Errorf("fetching %s: %d bytes exceeds the %d byte limit", normalized, resp.ContentLength, maxBytes)
	}
	finalURL := normalized
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return resp.Body, classify(resp.Header.Get("Content-Type"), finalURL), nil
}

// Fetch downloads rawURL into dir and returns where it landed. The file
// name comes from the URL with an extension matching the content.
func Fetch(ctx context.Context, rawURL, dir string, log logrus.FieldLogger) (Result, error) {
	log = logging.OrDiscard(log)
	normalized, err := normalizeAndValidateURL(rawURL)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", "beatboy")

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetching %s: %w", normalized, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("fetching %s: %s", normalized, resp.Status)
	}

	finalURL := normalized
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	contentType := resp.Header.Get("Content-Type")
	name := baseName(finalURL)
	if name == "" {
		name = "download"
	}
	res := Result{
		Name: name,
		Kind: classify(contentType, finalURL),
	}

	f, err := createDownloadFile(dir, archive.SanitizeFilename(name), extensionFor(contentType, finalURL))
	if err != nil {
		return Result{}, fmt.Errorf("creating download file: %w", err)
	}
	res.Path = f.Name()

	n, err := io.Copy(f, io.LimitReader(resp.Body, maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxBytes {
		err = fmt.Errorf("exceeds the %d byte limit", maxBytes)
	}
	if err != nil {
		_ = os.Remove(res.Path)
		return Result{}, fmt.Errorf("downloading %s: %w", normalized, err)
	}

	log.WithFields(logrus.Fields{
		"function": "downloader.Fetch",
		"url":      finalURL,
		"path":     res.Path,
		"kind":     res.Kind.String(),
		"bytes":    n,
		"elapsed":  time.Since(start).String(),
	}).Info("Downloaded remote file")
	return res, nil
}

// createDownloadFile keeps the remote file name so titles and archive
// names match the URL, adding a random suffix only on collision.
func createDownloadFile(dir, name, ext string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name+ext), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil || !os.IsExist(err) {
		return f, err
	}
	return os.CreateTemp(dir, name+"-*"+ext)
}

// LocalPath returns arg unchanged when it is a local path, or downloads
// it into dir when it is a URL.
func LocalPath(ctx context.Context, arg, dir string, log logrus.FieldLogger) (string, error) {
	if !IsURL(arg) {
		return arg, nil
	}
	res, err := Fetch(ctx, arg, dir, log)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// TempDir makes a scratch directory for downloads.
func TempDir() (string, func(), error) {
	dir, err := os.MkdirTemp("", "beatboy-fetch-*")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(filepath.Clean(dir)) }, nil
}
