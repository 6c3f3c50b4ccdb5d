package agpatch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// platformSupport bundles everything that varies by operating system:
// where installs live, which path prefixes are system-owned, and how to
// run the privileged helper script. Tests substitute their own instance.
type platformSupport struct {
	name           string
	systemPrefixes []string
	searchRoots    func() []string
	canElevate     bool
	// elevate runs script with args at root privileges. statusPath is a
	// file inside the staging dir the detached flow writes its exit code
	// to; synchronous flows ignore it.
	elevate func(ctx context.Context, script string, args []string, statusPath string) error
}

// Path prefixes that are always root-owned. Installs under these never get
// a direct write attempt.
var (
	darwinSystemPrefixes = []string{"/Applications/", "/System/Applications/", "/Library/", "/System/"}
	linuxSystemPrefixes  = []string{"/usr/", "/opt/", "/lib/", "/lib64/", "/var/", "/snap/"}
)

func currentPlatform() *platformSupport {
	switch runtime.GOOS {
	case "darwin":
		return &platformSupport{
			name:           "darwin",
			systemPrefixes: darwinSystemPrefixes,
			searchRoots:    darwinSearchRoots,
			canElevate:     true,
			elevate:        elevateDarwin,
		}
	case "linux":
		return &platformSupport{
			name:           "linux",
			systemPrefixes: linuxSystemPrefixes,
			searchRoots:    linuxSearchRoots,
			canElevate:     true,
			elevate:        elevateLinux,
		}
	default:
		// No supported elevation path; unwritable targets are terminal.
		return &platformSupport{
			name:        runtime.GOOS,
			searchRoots: genericSearchRoots,
		}
	}
}

// isSystemOwnedPath reports whether path sits under a prefix that is always
// root-owned on this platform. Such installs skip the direct attempt and go
// straight to the privileged flow.
func (p *platformSupport) isSystemOwnedPath(path string) bool {
	for _, prefix := range p.systemPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func linuxSearchRoots() []string {
	home, _ := os.UserHomeDir()
	roots := []string{
		"/usr/share/antigravity",
		"/usr/lib/antigravity",
		"/opt/antigravity",
		"/opt/Antigravity",
	}
	if home != "" {
		roots = append(roots,
			filepath.Join(home, ".local", "share", "antigravity"),
			filepath.Join(home, "antigravity"),
		)
	}
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		roots = append(roots, filepath.Join(data, "antigravity"))
	}
	return roots
}

func darwinSearchRoots() []string {
	home, _ := os.UserHomeDir()
	roots := []string{
		"/Applications/Antigravity.app/Contents",
	}
	if home != "" {
		roots = append(roots, filepath.Join(home, "Applications", "Antigravity.app", "Contents"))
	}
	return roots
}

func genericSearchRoots() []string {
	var roots []string
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		roots = append(roots, filepath.Join(local, "Programs", "Antigravity"))
	}
	for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
		if pf := os.Getenv(env); pf != "" {
			roots = append(roots, filepath.Join(pf, "Antigravity"))
		}
	}
	return roots
}
