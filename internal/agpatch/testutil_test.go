package agpatch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// writeInstallFixture builds a minimal Antigravity install tree under a
// temp dir and returns its root. version goes into product.json; empty
// version omits product.json entirely.
func writeInstallFixture(t *testing.T, version string) string {
	t.Helper()
	root := t.TempDir()
	rr := filepath.Join(root, "resources", "app")

	ext := filepath.Join(rr, "extensions", "antigravity")
	wb := filepath.Join(rr, "out", "vs", "code", "electron-browser", "workbench")
	for _, dir := range []string{ext, wb} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	mustWrite(t, filepath.Join(ext, "cascade-panel.html"), "<html>original cascade</html>")
	mustWrite(t, filepath.Join(wb, "workbench.html"), "<html>original workbench</html>")
	mustWrite(t, filepath.Join(wb, "workbench-jetski-agent.html"), "<html>original manager</html>")

	if version != "" {
		product := map[string]any{
			"nameShort":  "Antigravity",
			"ideVersion": version,
			"checksums": map[string]string{
				"extensions/antigravity/cascade-panel.html":                    "aaa",
				"vs/code/electron-browser/workbench/workbench.html":            "bbb",
				"vs/code/electron-browser/workbench/workbench-jetski-agent.html": "ccc",
				"vs/code/electron-browser/workbench/workbench.js":              "ddd",
			},
		}
		raw, err := json.MarshalIndent(product, "", "  ")
		if err != nil {
			t.Fatal(err)
		}
		mustWrite(t, filepath.Join(rr, "product.json"), string(raw))
	}
	return root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

// fakeAssets is a small payload covering all three subsystems.
func fakeAssets() AssetSource {
	files := []PatchFile{
		{Path: "cascade-panel.html", Data: []byte("<html>patched cascade</html>")},
		{Path: "cascade-panel/main.js", Data: []byte("// cascade js")},
		{Path: "cascade-panel/markdown.css", Data: []byte("/* cascade css */")},
		{Path: "workbench.html", Data: []byte("<html>patched workbench</html>")},
		{Path: "sidebar-panel/main.js", Data: []byte("// sidebar js")},
		{Path: "workbench-jetski-agent.html", Data: []byte("<html>patched manager</html>")},
		{Path: "manager-panel/main.js", Data: []byte("// manager js")},
		{Path: "agpatch-privileged.sh", Data: []byte("#!/bin/bash\nexit 0\n")},
		{Path: "agpatch-privileged.en.sh", Data: []byte("#!/bin/bash\nexit 0\n")},
	}
	return func() ([]PatchFile, error) {
		return files, nil
	}
}

// testPlatform returns a non-elevating platform so engine tests exercise
// only the direct path unless a test installs its own elevate func.
func testPlatform() *platformSupport {
	return &platformSupport{
		name:        "test",
		searchRoots: func() []string { return nil },
	}
}

func testEngine() *Engine {
	return &Engine{
		Locale:   "en-US",
		Assets:   fakeAssets(),
		Platform: testPlatform(),
	}
}
