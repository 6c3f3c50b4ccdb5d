package agpatch

import (
	"os"
	"path/filepath"
)

const backupSuffix = ".bak"

// backupOriginal creates <file>.bak next to file. The backup is created at
// most once: an existing .bak is the pristine pre-patch copy and must never
// be overwritten by a patched file on reinstall. A missing original is not
// an error, some entries only exist in one layout variant.
func backupOriginal(file string) error {
	if !fileExists(file) {
		return nil
	}
	bak := file + backupSuffix
	if fileExists(bak) {
		return nil
	}
	if err := copyFile(file, bak); err != nil {
		return ioErr("patchBackend.errors.backupFailed", file, err)
	}
	return nil
}

// restoreOriginal moves <file>.bak back over file and deletes the backup.
// Nothing to restore is a no-op so restore paths stay idempotent.
func restoreOriginal(file string) error {
	bak := file + backupSuffix
	if !fileExists(bak) {
		return nil
	}
	if err := copyFile(bak, file); err != nil {
		return ioErr("patchBackend.errors.restoreFailed", file, err)
	}
	if err := os.Remove(bak); err != nil {
		return ioErr("patchBackend.errors.restoreFailed", bak, err)
	}
	return nil
}

// removePayloadDir deletes a deployed payload directory if present.
func removePayloadDir(dir string) error {
	if !pathExists(dir) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return ioErr("patchBackend.errors.removeDirFailed", dir, err)
	}
	return nil
}

// restoreLegacySidebar undoes the legacy layout: entry file from backup,
// payload directory removed.
func restoreLegacySidebar(resourcesRoot string) error {
	ext := extensionsDir(resourcesRoot)
	if err := restoreOriginal(filepath.Join(ext, "cascade-panel.html")); err != nil {
		return err
	}
	return removePayloadDir(filepath.Join(ext, "cascade-panel"))
}

// restoreModernSidebar undoes the modern layout.
func restoreModernSidebar(resourcesRoot string) error {
	wb := workbenchDir(resourcesRoot)
	if err := restoreOriginal(filepath.Join(wb, "workbench.html")); err != nil {
		return err
	}
	return removePayloadDir(filepath.Join(wb, "sidebar-panel"))
}

// restoreManager undoes the manager deployment.
func restoreManager(resourcesRoot string) error {
	wb := workbenchDir(resourcesRoot)
	if err := restoreOriginal(filepath.Join(wb, "workbench-jetski-agent.html")); err != nil {
		return err
	}
	return removePayloadDir(filepath.Join(wb, "manager-panel"))
}
