package agpatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// copyFile copies src to dst preserving the source file mode.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return out.Close()
}

// writeFileEnsureDir writes data to path, creating parent directories.
func writeFileEnsureDir(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, mode)
}

// dirSize walks dir summing regular file sizes. Unreadable entries are
// skipped rather than failing the whole walk.
func dirSize(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// removeAllMaybeRoot removes path, retrying through the root executor when
// the unprivileged removal hits a permission error.
func removeAllMaybeRoot(path string, exec *Executor) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}
	if !isPermissionError(err) || exec == nil {
		return err
	}
	debugf("RemoveAll %s: %v, retrying as root\n", path, err)
	return exec.RunArgs("rm", "-rf", "--", path)
}
