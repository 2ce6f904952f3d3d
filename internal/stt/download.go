package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	. "github.com/roelfdiedericks/speechkit/internal/logging"
	. "github.com/roelfdiedericks/speechkit/internal/metrics"
	"github.com/roelfdiedericks/speechkit/internal/paths"
)

// downloadTimeout bounds a whole model download.
const downloadTimeout = 30 * time.Minute

// DownloadModel downloads a whisper model into destDir and returns its path.
// An existing complete file is left alone. Progress is logged via L_info.
func DownloadModel(ctx context.Context, model *WhisperModel, destDir string) (path string, err error) {
	if model == nil {
		return "", fmt.Errorf("model is nil")
	}

	expandedDir, err := paths.ExpandTilde(destDir)
	if err != nil {
		return "", fmt.Errorf("expand path: %w", err)
	}
	if err := paths.EnsureDir(expandedDir); err != nil {
		return "", fmt.Errorf("create models directory: %w", err)
	}

	destPath := filepath.Join(expandedDir, model.Name)
	if IsModelDownloaded(expandedDir, model.Name) {
		L_info("stt: model already downloaded", "model", model.Name, "path", destPath)
		return destPath, nil
	}
	tempPath := destPath + ".download"

	defer MetricTimer("stt/download", model.Name)()
	defer func() {
		if err != nil {
			MetricFail("stt/download", model.Name)
			return
		}
		MetricSuccess("stt/download", model.Name)
	}()

	L_info("stt: downloading model", "model", model.Name, "size", humanize.Bytes(uint64(model.SizeBytes)), "url", model.URL) // #nosec G115 - sizes are positive

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	totalSize := resp.ContentLength
	if totalSize <= 0 {
		totalSize = model.SizeBytes
	}

	tempFile, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	progress := &progressWriter{total: totalSize, lastLog: time.Now()}
	if _, err := io.Copy(tempFile, io.TeeReader(resp.Body, progress)); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("download %s: %w", model.Name, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("rename file: %w", err)
	}

	L_info("stt: download complete", "model", model.Name, "path", destPath, "size", humanize.Bytes(uint64(progress.done))) // #nosec G115
	return destPath, nil
}

// progressWriter counts bytes and logs progress every two seconds.
type progressWriter struct {
	total   int64
	done    int64
	lastLog time.Time
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	if time.Since(p.lastLog) > 2*time.Second {
		percent := 0
		if p.total > 0 {
			percent = int(float64(p.done) / float64(p.total) * 100)
		}
		L_info("stt: downloading", "progress", fmt.Sprintf("%d%%", percent),
			"downloaded", humanize.Bytes(uint64(p.done))+" / "+humanize.Bytes(uint64(p.total))) // #nosec G115
		p.lastLog = time.Now()
	}
	return len(b), nil
}
