package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrDownloadFailed indicates a payload could not be fetched. The cause is
// included in the error chain.
var ErrDownloadFailed = errors.New("download failed")

// DefaultTimeout bounds a whole download, body included.
const DefaultTimeout = 10 * time.Minute

// partSuffix marks an incomplete download next to its destination.
const partSuffix = ".part"

// Client downloads payloads over HTTP.
//
// Example usage:
//
//	client := NewClient(10*time.Minute, "snarf/1.0")
//
//	err := client.DownloadFile(ctx, rec.SourceURL, "/photos/Sunset.jpg", func(written, total int64) {
//	    if total > 0 {
//	        fmt.Printf("%.1f%%\r", float64(written)/float64(total)*100)
//	    }
//	})
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a Client. A zero timeout uses DefaultTimeout; an empty
// userAgent sends "snarf".
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = "snarf"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes, -1 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// DownloadFile streams url into destPath.
//
// The body goes to destPath+".part" first and is renamed onto destPath once
// complete, so destPath never holds a truncated payload. An existing file at
// destPath is replaced. onProgress, if not nil, receives (written, total)
// with total -1 when the server sends no length.
//
// Every failure, including cancellation of ctx, wraps ErrDownloadFailed.
// There is no retry.
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	if err := c.download(ctx, url, destPath, onProgress); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, url, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	partPath := destPath + partSuffix
	file, err := os.Create(partPath)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			file.Close()
			os.Remove(partPath)
		}
	}()

	var writer io.Writer = file
	if onProgress != nil {
		onProgress(0, resp.ContentLength)
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	written, err := io.Copy(writer, resp.Body)
	if err != nil {
		return err
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := file.Close(); err != nil {
		return err
	}
	if err := os.Rename(partPath, destPath); err != nil {
		return err
	}
	committed = true
	return nil
}
