package provision

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"faucet-agent/pkg/apperr"
	"faucet-agent/pkg/logg"

	"go.uber.org/zap"
)

// Unpack extracts the archive at path into dir and removes the archive
// afterwards. Zip and gzipped tar are the formats the driver releases ship
// in; anything else is rejected.
func Unpack(logger *zap.Logger, path, dir string) error {
	const op = "Unpack"

	log := logger.With(zap.String(logg.Layer, "Unpack"))

	var err error

	switch {
	case strings.HasSuffix(path, ".zip"):
		err = unpackZip(path, dir)
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		err = unpackTarGz(path, dir)
	default:
		return apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "unknown_archive_format")
	}

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unpack_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaPath:   path,
		})
	}

	if err := os.Remove(path); err != nil {
		log.Warn("Removing the unpacked archive failed",
			zap.String(logg.Path, path), zap.Error(err))
	}

	log.Info("Archive unpacked", zap.String(logg.Path, path), zap.String("dir", dir))

	return nil
}

func unpackZip(path, dir string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := sanitizePath(dir, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}

			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return err
		}

		err = writeFile(target, src, file.Mode())
		src.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

func unpackTarGz(path, dir string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gz.Close()

	reader := tar.NewReader(gz)

	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		target, err := sanitizePath(dir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}

			if err := writeFile(target, reader, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}
}

// sanitizePath rejects entry names that would escape dir.
func sanitizePath(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.Clean(name))

	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", apperr.WrapErrorWithReason("sanitizePath", apperr.CodeInvalidArgument, "path_escapes_target_dir")
	}

	return target, nil
}

func writeFile(target string, src io.Reader, mode os.FileMode) error {
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, src)
	closeErr := dst.Close()

	if err != nil {
		return err
	}

	return closeErr
}
