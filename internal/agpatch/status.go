package agpatch

import (
	"os"
	"path/filepath"

	"lukechampine.com/blake3"
)

// SubsystemStatus describes one patch subsystem of an install.
type SubsystemStatus struct {
	Name      string
	EntryPath string
	Installed bool // deployed config.json present
	HasBackup bool
	Drifted   bool // deployed entry no longer matches the payload
}

// InstallStatus is the full status report for one install.
type InstallStatus struct {
	Root       string
	Resources  string
	Version    IdeVersion
	VersionOK  bool
	Variant    SidebarVariant
	Subsystems []SubsystemStatus
}

// Status inspects an install without modifying it. Drift is detected by
// comparing the BLAKE3 digest of each deployed entry file against the
// current payload, a drifted entry usually means the payload shipped with a
// newer tool version than the one installed.
func (e *Engine) Status(path string) (*InstallStatus, error) {
	root, rr, err := e.resolveRoots(path)
	if err != nil {
		return nil, err
	}

	st := &InstallStatus{Root: root, Resources: rr}
	st.Version, st.VersionOK = readIdeVersion(rr)
	st.Variant = detectSidebarVariant(rr)

	assets, err := e.Assets()
	if err != nil {
		return nil, err
	}
	payload := make(map[string][]byte, len(assets))
	for _, f := range assets {
		payload[f.Path] = f.Data
	}

	ext := extensionsDir(rr)
	wb := workbenchDir(rr)

	type probe struct {
		name   string
		base   string
		layout subsystemLayout
	}
	for _, p := range []probe{
		{"sidebar (legacy)", ext, legacySidebarLayout},
		{"sidebar (modern)", wb, modernSidebarLayout},
		{"manager", wb, managerLayout},
	} {
		entry := filepath.Join(p.base, p.layout.entry)
		s := SubsystemStatus{
			Name:      p.name,
			EntryPath: entry,
			Installed: fileExists(filepath.Join(p.base, p.layout.payloadDir, "config.json")),
			HasBackup: fileExists(entry + backupSuffix),
		}
		if s.Installed {
			if want, ok := payload[p.layout.entry]; ok {
				if got, err := os.ReadFile(entry); err == nil {
					s.Drifted = blake3.Sum256(got) != blake3.Sum256(want)
				} else {
					s.Drifted = true
				}
			}
		}
		st.Subsystems = append(st.Subsystems, s)
	}
	return st, nil
}

// Installed reports whether any subsystem is deployed.
func (s *InstallStatus) Installed() bool {
	for _, sub := range s.Subsystems {
		if sub.Installed {
			return true
		}
	}
	return false
}
