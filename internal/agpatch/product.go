package agpatch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// sanitizeChecksums removes the patched entries from the checksums table in
// product.json so Antigravity's integrity check does not flag the modified
// files. The file is rewritten only when at least one key was actually
// removed; a missing product.json or checksums table is fine. Removed
// entries are not restored on uninstall, the application tolerates absent
// table entries but not mismatched ones.
func sanitizeChecksums(resourcesRoot string) error {
	path := filepath.Join(resourcesRoot, "product.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ioErr("patchBackend.errors.readProductJsonFailed", path, err)
	}

	var product map[string]any
	if err := json.Unmarshal(raw, &product); err != nil {
		return patchErr(KindManifestParse, "patchBackend.errors.parseProductJsonFailed",
			map[string]string{"path": path, "error": err.Error()}, err)
	}

	checksums, ok := product["checksums"].(map[string]any)
	if !ok {
		return nil
	}

	removed := 0
	for _, key := range checksumKeysToRemove {
		if _, present := checksums[key]; present {
			delete(checksums, key)
			removed++
		}
	}
	if removed == 0 {
		return nil
	}
	debugf("removed %d checksum entries from %s\n", removed, path)

	out, err := json.MarshalIndent(product, "", "  ")
	if err != nil {
		return patchErr(KindManifestParse, "patchBackend.errors.serializeProductJsonFailed",
			map[string]string{"path": path, "error": err.Error()}, err)
	}
	out = append(out, '\n')
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return ioErr("patchBackend.errors.writeProductJsonFailed", path, err)
	}
	return nil
}
