package agpatch

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Name of the sentinel file used to probe directory writability. Created
// and immediately removed; the dot prefix keeps it out of casual listings.
const writeProbeName = ".agpatch-write-test"

// canWriteDir probes dir by creating a sentinel file. A permission-class
// failure (EACCES, EPERM, EROFS) means "not writable"; anything else is a
// real filesystem error and is reported as such.
func canWriteDir(dir string) (bool, error) {
	probe := filepath.Join(dir, writeProbeName)
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err == nil {
		f.Close()
		os.Remove(probe)
		return true, nil
	}
	if isPermissionErrno(err) {
		return false, nil
	}
	return false, ioErr("patchBackend.errors.cannotProbeDir", dir, err)
}

func isPermissionErrno(err error) bool {
	return errors.Is(err, os.ErrPermission) ||
		errors.Is(err, unix.EACCES) ||
		errors.Is(err, unix.EPERM) ||
		errors.Is(err, unix.EROFS)
}

// firstUnwritableDir probes each existing directory in dirs and returns the
// first one that is not writable. Directories that do not exist are skipped,
// the deploy step creates them and surfaces its own error if that fails.
func firstUnwritableDir(dirs []string) (string, bool, error) {
	for _, dir := range dirs {
		if !dirExists(dir) {
			continue
		}
		ok, err := canWriteDir(dir)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return dir, true, nil
		}
	}
	return "", false, nil
}
