package provision

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"faucet-agent/pkg/apperr"
	"faucet-agent/pkg/logg"

	"go.uber.org/zap"
)

// Download fetches url into dir under name and returns the saved file's
// path. A file shorter than the announced content length is removed again;
// a truncated driver binary must never be left where the service lookup
// would find it.
func Download(ctx context.Context, logger *zap.Logger, url, dir, name string) (string, error) {
	const op = "Download"

	log := logger.With(zap.String(logg.Layer, "Download"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeDownloadFailed, err, map[string]any{
			apperr.MetaReason: "request_build_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaURL:    url,
		})
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeDownloadFailed, err, map[string]any{
			apperr.MetaReason: "request_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaURL:    url,
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeDownloadFailed, resp.Status)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeDownloadFailed, err, map[string]any{
			apperr.MetaReason: "file_create_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaPath:   path,
		})
	}

	written, err := io.Copy(file, resp.Body)
	closeErr := file.Close()

	if err == nil {
		err = closeErr
	}

	if err == nil && resp.ContentLength >= 0 && written != resp.ContentLength {
		log.Error("Downloaded file size does not match the announced one",
			zap.String(logg.URL, url),
			zap.Int64("expected", resp.ContentLength),
			zap.Int64("written", written))

		err = apperr.WrapErrorWithReason(op, apperr.CodeDownloadFailed, "size_mismatch")
	}

	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			log.Warn("Removing the incomplete download failed",
				zap.String(logg.Path, path), zap.Error(removeErr))
		}

		return "", apperr.Wrap(op, apperr.CodeDownloadFailed, err, map[string]any{
			apperr.MetaReason: "save_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaURL:    url,
		})
	}

	log.Info("File downloaded",
		zap.String(logg.URL, url),
		zap.String(logg.Path, path),
		zap.Int64("size", written))

	return path, nil
}
