package agpatch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SidebarVariant selects which deployment layout the sidebar patch uses.
type SidebarVariant int

const (
	// VariantLegacy replaces the standalone cascade-panel entry under
	// extensions/antigravity (builds before 1.18.3).
	VariantLegacy SidebarVariant = iota
	// VariantModern replaces workbench.html under out/vs/... (1.18.3+).
	VariantModern
)

func (v SidebarVariant) String() string {
	if v == VariantModern {
		return "modern"
	}
	return "legacy"
}

// IdeVersion is a parsed ideVersion triplet from product.json.
type IdeVersion struct {
	Major, Minor, Patch int
}

func (v IdeVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether v >= other in lexicographic triplet order.
func (v IdeVersion) AtLeast(other IdeVersion) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch >= other.Patch
}

// modernSidebarThreshold is the first build shipping the merged workbench
// sidebar. Anything older uses the standalone cascade-panel entry.
var modernSidebarThreshold = IdeVersion{Major: 1, Minor: 18, Patch: 3}

// parseIdeVersion extracts up to three numeric components. Each component
// contributes its leading digit run; suffixes like "3-beta" are ignored.
// A component with no leading digits fails the parse, and missing minor or
// patch components default to zero.
func parseIdeVersion(raw string) (IdeVersion, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ".", 4)
	nums := [3]int{}
	for i := 0; i < 3; i++ {
		if i >= len(parts) {
			break
		}
		n, ok := leadingInt(parts[i])
		if !ok {
			return IdeVersion{}, false
		}
		nums[i] = n
	}
	return IdeVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

func leadingInt(s string) (int, bool) {
	n := 0
	seen := false
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		seen = true
		n = n*10 + int(r-'0')
	}
	return n, seen
}

// readIdeVersion parses product.json under the resource root and returns
// the ideVersion triplet. Absent or malformed data reports ok=false rather
// than an error so callers can fall back to the legacy layout.
func readIdeVersion(resourcesRoot string) (IdeVersion, bool) {
	raw, err := os.ReadFile(filepath.Join(resourcesRoot, "product.json"))
	if err != nil {
		return IdeVersion{}, false
	}
	var product struct {
		IdeVersion string `json:"ideVersion"`
	}
	if err := json.Unmarshal(raw, &product); err != nil {
		return IdeVersion{}, false
	}
	if product.IdeVersion == "" {
		return IdeVersion{}, false
	}
	return parseIdeVersion(product.IdeVersion)
}

// detectSidebarVariant decides the deployment layout for one install.
// Unknown versions are treated as legacy.
func detectSidebarVariant(resourcesRoot string) SidebarVariant {
	v, ok := readIdeVersion(resourcesRoot)
	if !ok {
		return VariantLegacy
	}
	if v.AtLeast(modernSidebarThreshold) {
		return VariantModern
	}
	return VariantLegacy
}

// detectInstallRoot probes the platform's well-known install locations and
// returns the first normalized root that carries the marker.
func detectInstallRoot(p *platformSupport) (string, bool) {
	for _, candidate := range p.searchRoots() {
		if root, ok := normalizeInstallRoot(candidate); ok {
			return root, true
		}
	}
	return "", false
}
