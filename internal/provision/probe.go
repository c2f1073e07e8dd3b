// Package provision keeps the WebDriver binaries the browser layer runs on
// present and current: it probes installed executable versions, resolves
// the matching driver release, downloads it and unpacks it into place.
package provision

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"faucet-agent/internal/entity"
	"faucet-agent/pkg/apperr"
	"faucet-agent/pkg/logg"

	"go.uber.org/zap"
)

// Executable wraps one browser or driver binary on disk: where it lives,
// whether it exists and which version it reports.
type Executable struct {
	logger *zap.Logger
	name   string
	dir    string
	// versionIndex is the whitespace-separated field of the --version
	// output that holds the version string; -1 means the last field.
	versionIndex int
}

// NewBrowserExecutable describes an installed browser, looked up on PATH
// first and in dir second. Browsers print their version as the last field
// ("Mozilla Firefox 115.0").
func NewBrowserExecutable(logger *zap.Logger, name, dir string) *Executable {
	return &Executable{
		logger:       logger.With(zap.String(logg.Layer, "Executable")),
		name:         platformExecutableName(name),
		dir:          dir,
		versionIndex: -1,
	}
}

// NewDriverExecutable describes a managed driver binary under dir. The
// directory is created up front so a fresh download has somewhere to land.
// Drivers print their version as the second field ("geckodriver 0.34.0").
func NewDriverExecutable(logger *zap.Logger, name, dir string) (*Executable, error) {
	const op = "NewDriverExecutable"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "driver_dir_create_failed",
			apperr.MetaStage:  apperr.StageProvisioning,
			apperr.MetaPath:   dir,
		})
	}

	return &Executable{
		logger:       logger.With(zap.String(logg.Layer, "Executable")),
		name:         platformExecutableName(name),
		dir:          dir,
		versionIndex: 1,
	}, nil
}

func (e *Executable) Name() string {
	return e.name
}

func (e *Executable) Dir() string {
	return e.dir
}

// Path returns the resolved path of the binary. The managed copy under dir
// wins over a PATH hit: a freshly downloaded driver must not be shadowed by
// a stale system-wide one.
func (e *Executable) Path() string {
	managed := filepath.Join(e.dir, e.name)
	if info, err := os.Stat(managed); err == nil && !info.IsDir() {
		return managed
	}

	if found, err := exec.LookPath(e.name); err == nil {
		return found
	}

	return managed
}

func (e *Executable) Exists() bool {
	if info, err := os.Stat(filepath.Join(e.dir, e.name)); err == nil && !info.IsDir() {
		return true
	}

	_, err := exec.LookPath(e.name)

	return err == nil
}

// Version returns the version string the binary reports, or "" when the
// binary is missing or its output has no version field.
func (e *Executable) Version() string {
	out, err := exec.Command(e.Path(), "--version").Output()
	if err != nil {
		e.logger.Debug("Reading the executable version failed",
			zap.String(logg.Path, e.Path()), zap.Error(err))

		return ""
	}

	fields := strings.Fields(strings.SplitN(string(out), "\n", 2)[0])
	if len(fields) == 0 {
		return ""
	}

	index := e.versionIndex
	if index < 0 || index >= len(fields) {
		index = len(fields) - 1
	}

	return strings.TrimLeft(fields[index], "v.")
}

// VersionInfo returns the parsed version; the zero version means it could
// not be read.
func (e *Executable) VersionInfo() entity.Version {
	return entity.ParseVersion(e.Version())
}

// MakeExecutable sets the executable bits after an unpack. No-op on Windows.
func (e *Executable) MakeExecutable() error {
	if runtime.GOOS == "windows" {
		return nil
	}

	return os.Chmod(filepath.Join(e.dir, e.name), 0o755)
}

func platformExecutableName(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(name, ".exe") {
		return name + ".exe"
	}

	return name
}
