package agpatch

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"
)

// CleanTargets selects which products' conversation caches to remove.
type CleanTargets struct {
	Antigravity bool
	Gemini      bool
	Codex       bool
	Claude      bool
}

func (t CleanTargets) hasAny() bool {
	return t.Antigravity || t.Gemini || t.Codex || t.Claude
}

type cacheLocation struct {
	product string
	path    string
}

// cacheLocations lists the conversation/trajectory stores for the selected
// products. Only paths that exist are returned.
func cacheLocations(targets CleanTargets) []cacheLocation {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	cfg, err := os.UserConfigDir()
	if err != nil {
		cfg = filepath.Join(home, ".config")
	}

	var candidates []cacheLocation
	if targets.Antigravity {
		candidates = append(candidates,
			cacheLocation{"antigravity", filepath.Join(cfg, "Antigravity", "User", "workspaceStorage")},
			cacheLocation{"antigravity", filepath.Join(home, ".antigravity", "trajectories")},
		)
	}
	if targets.Gemini {
		candidates = append(candidates,
			cacheLocation{"gemini", filepath.Join(home, ".gemini", "tmp")})
	}
	if targets.Codex {
		candidates = append(candidates,
			cacheLocation{"codex", filepath.Join(home, ".codex", "sessions")})
	}
	if targets.Claude {
		candidates = append(candidates,
			cacheLocation{"claude", filepath.Join(home, ".claude", "projects")})
	}

	var present []cacheLocation
	for _, c := range candidates {
		if dirExists(c.path) {
			present = append(present, c)
		}
	}
	return present
}

// RunClean removes the selected caches. With archive set, a .tar.zst
// snapshot is written to the home directory first so a slip of the finger
// is recoverable. Removal falls back to the root executor for entries that
// ended up root-owned (e.g. after a sudo'ed session).
func RunClean(targets CleanTargets, force, archive bool, exec *Executor) error {
	if !targets.hasAny() {
		return fmt.Errorf("no clean target selected")
	}

	locations := cacheLocations(targets)
	if len(locations) == 0 {
		cPrintln(colNote, "Nothing to clean.")
		return nil
	}

	var total int64
	for _, loc := range locations {
		size := dirSize(loc.path)
		total += size
		fmt.Printf("  %-12s %-10s %s\n", loc.product, humanSize(size), loc.path)
	}
	stepf("Total: %s in %d location(s)", humanSize(total), len(locations))

	if !force && !askYesNo("Delete these caches?", false) {
		cPrintln(colNote, "Aborted.")
		return nil
	}

	if archive {
		archivePath, err := writeCacheArchive(locations)
		if err != nil {
			return fmt.Errorf("archive caches: %w", err)
		}
		colSuccess.Printf("Archived to %s\n", archivePath)
	}

	for _, loc := range locations {
		if err := removeAllMaybeRoot(loc.path, exec); err != nil {
			return fmt.Errorf("remove %s: %w", loc.path, err)
		}
		debugf("removed %s\n", loc.path)
	}
	colSuccess.Println("Caches cleaned.")
	return nil
}

// writeCacheArchive snapshots every location into one zstd-compressed tar
// in the user's home directory. The archive file is flocked while written
// so two concurrent cleans cannot interleave into the same file.
func writeCacheArchive(locations []cacheLocation) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("agpatch-cache-%s.tar.zst", time.Now().Format("20060102-150405"))
	archivePath := filepath.Join(home, name)

	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := unix.Flock(int(out.Fd()), unix.LOCK_EX); err != nil {
		return "", fmt.Errorf("lock %s: %w", archivePath, err)
	}
	defer unix.Flock(int(out.Fd()), unix.LOCK_UN)

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return "", err
	}
	tw := tar.NewWriter(zw)

	var totalBytes int64
	for _, loc := range locations {
		totalBytes += dirSize(loc.path)
	}
	bar := progressbar.DefaultBytes(totalBytes, "archiving")

	for _, loc := range locations {
		base := filepath.Dir(loc.path)
		err := filepath.Walk(loc.path, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // unreadable entries are skipped, not fatal
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = filepath.ToSlash(filepath.Join(loc.product, rel))
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			f, err := os.Open(path)
			if err != nil {
				return nil
			}
			defer f.Close()
			_, err = io.Copy(io.MultiWriter(tw, bar), f)
			return err
		})
		if err != nil {
			tw.Close()
			zw.Close()
			return "", err
		}
	}
	bar.Finish()

	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return archivePath, nil
}
