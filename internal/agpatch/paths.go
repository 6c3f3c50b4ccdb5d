package agpatch

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Marker file that identifies a genuine Antigravity install. It lives under
// the resource root and is present in every shipped build.
const installMarker = "extensions/antigravity/cascade-panel.html"

// resourcesAppRoot maps an install root to the directory holding
// product.json, extensions/ and out/. macOS app bundles capitalize
// Resources; everything else ships lowercase resources/app.
func resourcesAppRoot(root string) string {
	if runtime.GOOS == "darwin" {
		cap := filepath.Join(root, "Resources", "app")
		if dirExists(cap) {
			return cap
		}
	}
	return filepath.Join(root, "resources", "app")
}

// extensionsDir holds the legacy sidebar entry and payload.
func extensionsDir(resourcesRoot string) string {
	return filepath.Join(resourcesRoot, "extensions", "antigravity")
}

// workbenchDir holds the modern sidebar and the manager entries.
func workbenchDir(resourcesRoot string) string {
	return filepath.Join(resourcesRoot, "out", "vs", "code", "electron-browser", "workbench")
}

func isValidInstallRoot(root string) bool {
	return fileExists(filepath.Join(resourcesAppRoot(root), filepath.FromSlash(installMarker)))
}

// normalizeInstallRoot accepts any path the user may plausibly hand us:
// the install root itself, the .app bundle on macOS, the resources/ or
// resources/app/ subdirectory, or any directory below the root. It derives
// candidate seeds from the input and walks each seed's ancestor chain until
// a directory containing the marker is found.
func normalizeInstallRoot(input string) (string, bool) {
	input = filepath.Clean(input)

	seeds := []string{input}

	if strings.HasSuffix(strings.ToLower(input), ".app") {
		seeds = append(seeds, filepath.Join(input, "Contents"))
	}
	if trimmed, ok := stripTailSegments(input, "resources", "app"); ok {
		seeds = append(seeds, trimmed)
	}
	if trimmed, ok := stripTailSegments(input, "resources"); ok {
		seeds = append(seeds, trimmed)
	}

	for _, seed := range seeds {
		for dir := seed; ; {
			if isValidInstallRoot(dir) {
				return dir, true
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return "", false
}

// stripTailSegments removes the given trailing path segments
// (case-insensitive) when the path ends with exactly that sequence.
func stripTailSegments(path string, tail ...string) (string, bool) {
	dir := path
	for i := len(tail) - 1; i >= 0; i-- {
		base := filepath.Base(dir)
		if !strings.EqualFold(base, tail[i]) {
			return "", false
		}
		dir = filepath.Dir(dir)
	}
	return dir, true
}
