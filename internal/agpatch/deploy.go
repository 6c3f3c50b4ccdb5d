package agpatch

import (
	"os"
	"path/filepath"
	"strings"
)

// subsystemLayout names the pieces of one deployable subsystem: the entry
// file that replaces an application file, and the payload directory that
// carries everything else plus the rendered config.json.
type subsystemLayout struct {
	entry      string // bundle path of the entry file, e.g. "cascade-panel.html"
	payloadDir string // bundle prefix and destination dir name, e.g. "cascade-panel"
}

var (
	legacySidebarLayout = subsystemLayout{entry: "cascade-panel.html", payloadDir: "cascade-panel"}
	modernSidebarLayout = subsystemLayout{entry: "workbench.html", payloadDir: "sidebar-panel"}
	managerLayout       = subsystemLayout{entry: "workbench-jetski-agent.html", payloadDir: "manager-panel"}
)

// deploySubsystem writes one subsystem under baseDir: the entry file over
// the (already backed up) original, and the payload directory rebuilt from
// scratch so stale files from earlier versions cannot linger. configJSON is
// written as <payloadDir>/config.json last.
func deploySubsystem(assets []PatchFile, baseDir string, layout subsystemLayout, configJSON []byte) error {
	destPayload := filepath.Join(baseDir, layout.payloadDir)
	if err := removePayloadDir(destPayload); err != nil {
		return err
	}
	if err := os.MkdirAll(destPayload, 0o755); err != nil {
		return ioErr("patchBackend.errors.createDirFailed", destPayload, err)
	}

	prefix := layout.payloadDir + "/"
	deployed := 0
	for _, f := range assets {
		var dest string
		switch {
		case f.Path == layout.entry:
			dest = filepath.Join(baseDir, layout.entry)
		case strings.HasPrefix(f.Path, prefix):
			dest = filepath.Join(baseDir, filepath.FromSlash(f.Path))
		default:
			continue
		}
		if err := writeFileEnsureDir(dest, f.Data, 0o644); err != nil {
			return ioErr("patchBackend.errors.writeFileFailed", dest, err)
		}
		deployed++
	}
	if deployed == 0 {
		return patchErr(KindAssetBundleUnavailable,
			"patchBackend.errors.missingSubsystemAssets",
			map[string]string{"subsystem": layout.payloadDir}, nil)
	}

	cfgPath := filepath.Join(destPayload, "config.json")
	if err := os.WriteFile(cfgPath, configJSON, 0o644); err != nil {
		return ioErr("patchBackend.errors.writeConfigFailed", cfgPath, err)
	}
	return nil
}

// writeSubsystemConfig refreshes only the config.json of an installed
// subsystem. The subsystem must already be deployed.
func writeSubsystemConfig(baseDir string, layout subsystemLayout, configJSON []byte) error {
	destPayload := filepath.Join(baseDir, layout.payloadDir)
	if !dirExists(destPayload) {
		return patchErr(KindNotInstalled, "patchBackend.errors.patchNotInstalled",
			map[string]string{"path": destPayload}, errNotInstalled)
	}
	cfgPath := filepath.Join(destPayload, "config.json")
	if err := os.WriteFile(cfgPath, configJSON, 0o644); err != nil {
		return ioErr("patchBackend.errors.writeConfigFailed", cfgPath, err)
	}
	return nil
}
