package agpatch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FeatureConfig is the sidebar rendering configuration. The Enabled flag
// controls whether the subsystem is deployed at all and is deliberately
// excluded from the deployed config.json.
type FeatureConfig struct {
	Enabled              bool    `json:"enabled"`
	Mermaid              bool    `json:"mermaid"`
	Math                 bool    `json:"math"`
	CopyButton           bool    `json:"copyButton"`
	TableColor           bool    `json:"tableColor"`
	FontSizeEnabled      bool    `json:"fontSizeEnabled"`
	FontSize             float64 `json:"fontSize"`
	CopyButtonSmartHover bool    `json:"copyButtonSmartHover"`
	// Position mode of the bottom copy button ("float" or "inline").
	CopyButtonShowBottom string `json:"copyButtonShowBottom"`
	CopyButtonStyle      string `json:"copyButtonStyle"`
	CopyButtonCustomText string `json:"copyButtonCustomText"`
}

// ManagerFeatureConfig configures the agent-manager panel. It mirrors the
// sidebar fields except table coloring is replaced by width limiting.
// MaxWidthRatio is a percentage of the panel width, not a 0..1 fraction.
type ManagerFeatureConfig struct {
	Enabled              bool    `json:"enabled"`
	Mermaid              bool    `json:"mermaid"`
	Math                 bool    `json:"math"`
	CopyButton           bool    `json:"copyButton"`
	MaxWidthEnabled      bool    `json:"maxWidthEnabled"`
	MaxWidthRatio        float64 `json:"maxWidthRatio"`
	FontSizeEnabled      bool    `json:"fontSizeEnabled"`
	FontSize             float64 `json:"fontSize"`
	CopyButtonSmartHover bool    `json:"copyButtonSmartHover"`
	CopyButtonShowBottom string  `json:"copyButtonShowBottom"`
	CopyButtonStyle      string  `json:"copyButtonStyle"`
	CopyButtonCustomText string  `json:"copyButtonCustomText"`
}

func defaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Enabled:              true,
		Mermaid:              true,
		Math:                 true,
		CopyButton:           true,
		TableColor:           true,
		FontSizeEnabled:      true,
		FontSize:             16,
		CopyButtonSmartHover: true,
		CopyButtonShowBottom: "float",
		CopyButtonStyle:      "icon",
		CopyButtonCustomText: "",
	}
}

func defaultManagerFeatureConfig() ManagerFeatureConfig {
	return ManagerFeatureConfig{
		Enabled:              true,
		Mermaid:              true,
		Math:                 true,
		CopyButton:           true,
		MaxWidthEnabled:      true,
		MaxWidthRatio:        75,
		FontSizeEnabled:      true,
		FontSize:             16,
		CopyButtonSmartHover: true,
		CopyButtonShowBottom: "float",
		CopyButtonStyle:      "icon",
		CopyButtonCustomText: "",
	}
}

// renderSidebarConfig serializes the deployed config.json for the sidebar
// subsystems. Enabled is an installer concern, not a renderer one, so it
// never appears in the deployed file.
func renderSidebarConfig(f FeatureConfig) ([]byte, error) {
	doc := struct {
		Mermaid              bool    `json:"mermaid"`
		Math                 bool    `json:"math"`
		CopyButton           bool    `json:"copyButton"`
		TableColor           bool    `json:"tableColor"`
		FontSizeEnabled      bool    `json:"fontSizeEnabled"`
		FontSize             float64 `json:"fontSize"`
		CopyButtonSmartHover bool    `json:"copyButtonSmartHover"`
		CopyButtonShowBottom string  `json:"copyButtonShowBottom"`
		CopyButtonStyle      string  `json:"copyButtonStyle"`
		CopyButtonCustomText string  `json:"copyButtonCustomText"`
	}{
		Mermaid:              f.Mermaid,
		Math:                 f.Math,
		CopyButton:           f.CopyButton,
		TableColor:           f.TableColor,
		FontSizeEnabled:      f.FontSizeEnabled,
		FontSize:             f.FontSize,
		CopyButtonSmartHover: f.CopyButtonSmartHover,
		CopyButtonShowBottom: f.CopyButtonShowBottom,
		CopyButtonStyle:      f.CopyButtonStyle,
		CopyButtonCustomText: f.CopyButtonCustomText,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func renderManagerConfig(f ManagerFeatureConfig) ([]byte, error) {
	doc := struct {
		Mermaid              bool    `json:"mermaid"`
		Math                 bool    `json:"math"`
		CopyButton           bool    `json:"copyButton"`
		MaxWidthEnabled      bool    `json:"maxWidthEnabled"`
		MaxWidthRatio        float64 `json:"maxWidthRatio"`
		FontSizeEnabled      bool    `json:"fontSizeEnabled"`
		FontSize             float64 `json:"fontSize"`
		CopyButtonSmartHover bool    `json:"copyButtonSmartHover"`
		CopyButtonShowBottom string  `json:"copyButtonShowBottom"`
		CopyButtonStyle      string  `json:"copyButtonStyle"`
		CopyButtonCustomText string  `json:"copyButtonCustomText"`
	}{
		Mermaid:              f.Mermaid,
		Math:                 f.Math,
		CopyButton:           f.CopyButton,
		MaxWidthEnabled:      f.MaxWidthEnabled,
		MaxWidthRatio:        f.MaxWidthRatio,
		FontSizeEnabled:      f.FontSizeEnabled,
		FontSize:             f.FontSize,
		CopyButtonSmartHover: f.CopyButtonSmartHover,
		CopyButtonShowBottom: f.CopyButtonShowBottom,
		CopyButtonStyle:      f.CopyButtonStyle,
		CopyButtonCustomText: f.CopyButtonCustomText,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// readDeployedFeatureConfig loads a previously deployed config.json and
// overlays it onto the defaults. Missing file yields the defaults.
func readDeployedFeatureConfig(path string) (FeatureConfig, error) {
	cfg := defaultFeatureConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, ioErr("patchBackend.errors.readConfigFailed", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return defaultFeatureConfig(), patchErr(KindManifestParse,
			"patchBackend.errors.parseConfigFailed",
			map[string]string{"path": path, "error": err.Error()}, err)
	}
	cfg.Enabled = true
	return cfg, nil
}

func readDeployedManagerConfig(path string) (ManagerFeatureConfig, error) {
	cfg := defaultManagerFeatureConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, ioErr("patchBackend.errors.readConfigFailed", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return defaultManagerFeatureConfig(), patchErr(KindManifestParse,
			"patchBackend.errors.parseConfigFailed",
			map[string]string{"path": path, "error": err.Error()}, err)
	}
	cfg.Enabled = true
	return cfg, nil
}

// sidebarConfigPath returns where the deployed sidebar config.json lives
// for the given variant.
func sidebarConfigPath(resourcesRoot string, variant SidebarVariant) string {
	if variant == VariantModern {
		return filepath.Join(workbenchDir(resourcesRoot), "sidebar-panel", "config.json")
	}
	return filepath.Join(extensionsDir(resourcesRoot), "cascade-panel", "config.json")
}

func managerConfigPath(resourcesRoot string) string {
	return filepath.Join(workbenchDir(resourcesRoot), "manager-panel", "config.json")
}
