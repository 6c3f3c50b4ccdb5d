package agpatch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInstallLegacyLayout(t *testing.T) {
	root := writeInstallFixture(t, "1.18.2")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()

	if err := eng.Install(context.Background(), root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	ext := extensionsDir(rr)
	wb := workbenchDir(rr)

	if got := mustRead(t, filepath.Join(ext, "cascade-panel.html")); got != "<html>patched cascade</html>" {
		t.Fatalf("legacy entry = %q", got)
	}
	if got := mustRead(t, filepath.Join(ext, "cascade-panel.html.bak")); got != "<html>original cascade</html>" {
		t.Fatalf("legacy backup = %q", got)
	}
	if !fileExists(filepath.Join(ext, "cascade-panel", "config.json")) {
		t.Fatal("legacy payload config missing")
	}
	// Modern sidebar must stay untouched on a legacy install.
	if got := mustRead(t, filepath.Join(wb, "workbench.html")); got != "<html>original workbench</html>" {
		t.Fatalf("workbench.html modified on legacy install: %q", got)
	}
	// Manager deploys on both variants.
	if got := mustRead(t, filepath.Join(wb, "workbench-jetski-agent.html")); got != "<html>patched manager</html>" {
		t.Fatalf("manager entry = %q", got)
	}

	checksums := readChecksums(t, rr)
	for _, key := range checksumKeysToRemove {
		if _, present := checksums[key]; present {
			t.Fatalf("checksum %q not sanitized", key)
		}
	}
}

func TestInstallModernLayout(t *testing.T) {
	root := writeInstallFixture(t, "1.18.3")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()

	if err := eng.Install(context.Background(), root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	ext := extensionsDir(rr)
	wb := workbenchDir(rr)

	if got := mustRead(t, filepath.Join(wb, "workbench.html")); got != "<html>patched workbench</html>" {
		t.Fatalf("modern entry = %q", got)
	}
	if !fileExists(filepath.Join(wb, "sidebar-panel", "config.json")) {
		t.Fatal("modern payload config missing")
	}
	if got := mustRead(t, filepath.Join(ext, "cascade-panel.html")); got != "<html>original cascade</html>" {
		t.Fatalf("legacy entry modified on modern install: %q", got)
	}
	if pathExists(filepath.Join(ext, "cascade-panel")) {
		t.Fatal("legacy payload present on modern install")
	}
}

func TestInstallUpgradeRemovesLegacyLeftovers(t *testing.T) {
	root := writeInstallFixture(t, "1.18.2")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()
	ctx := context.Background()

	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	// The IDE upgrades past the threshold; reinstall must migrate the
	// sidebar to the modern layout and clean up the legacy deployment.
	product := mustRead(t, filepath.Join(rr, "product.json"))
	var doc map[string]any
	if err := json.Unmarshal([]byte(product), &doc); err != nil {
		t.Fatal(err)
	}
	doc["ideVersion"] = "1.19.0"
	raw, _ := json.MarshalIndent(doc, "", "  ")
	mustWrite(t, filepath.Join(rr, "product.json"), string(raw))

	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	ext := extensionsDir(rr)
	wb := workbenchDir(rr)
	if got := mustRead(t, filepath.Join(ext, "cascade-panel.html")); got != "<html>original cascade</html>" {
		t.Fatalf("legacy entry not restored after migration: %q", got)
	}
	if pathExists(filepath.Join(ext, "cascade-panel")) {
		t.Fatal("legacy payload survived migration")
	}
	if got := mustRead(t, filepath.Join(wb, "workbench.html")); got != "<html>patched workbench</html>" {
		t.Fatalf("modern entry = %q", got)
	}
}

func TestReinstallKeepsPristineBackup(t *testing.T) {
	root := writeInstallFixture(t, "1.18.2")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()
	ctx := context.Background()

	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}
	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	bak := filepath.Join(extensionsDir(rr), "cascade-panel.html.bak")
	if got := mustRead(t, bak); got != "<html>original cascade</html>" {
		t.Fatalf("backup lost pristine content on reinstall: %q", got)
	}
}

func TestUninstallRestoresEverything(t *testing.T) {
	root := writeInstallFixture(t, "1.18.3")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()
	ctx := context.Background()

	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}
	if err := eng.Uninstall(ctx, root); err != nil {
		t.Fatal(err)
	}

	ext := extensionsDir(rr)
	wb := workbenchDir(rr)
	if got := mustRead(t, filepath.Join(wb, "workbench.html")); got != "<html>original workbench</html>" {
		t.Fatalf("workbench not restored: %q", got)
	}
	if got := mustRead(t, filepath.Join(wb, "workbench-jetski-agent.html")); got != "<html>original manager</html>" {
		t.Fatalf("manager not restored: %q", got)
	}
	for _, leftover := range []string{
		filepath.Join(wb, "sidebar-panel"),
		filepath.Join(wb, "manager-panel"),
		filepath.Join(ext, "cascade-panel"),
		filepath.Join(wb, "workbench.html.bak"),
		filepath.Join(wb, "workbench-jetski-agent.html.bak"),
	} {
		if pathExists(leftover) {
			t.Fatalf("leftover after uninstall: %s", leftover)
		}
	}

	// Checksum entries removed at install time stay removed; restoring
	// them would reintroduce mismatches the application rejects.
	checksums := readChecksums(t, rr)
	for _, key := range checksumKeysToRemove {
		if _, present := checksums[key]; present {
			t.Fatalf("uninstall restored checksum key %q", key)
		}
	}

	// Uninstalling an already-clean install is a no-op.
	if err := eng.Uninstall(ctx, root); err != nil {
		t.Fatalf("second uninstall: %v", err)
	}
}

func TestInstallWithSubsystemsDisabled(t *testing.T) {
	root := writeInstallFixture(t, "1.18.3")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()
	ctx := context.Background()

	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	// Disable the sidebar, keep the manager: install must remove the
	// sidebar deployment and leave the manager alone.
	features := defaultFeatureConfig()
	features.Enabled = false
	if err := eng.Install(ctx, root, features, defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	wb := workbenchDir(rr)
	if got := mustRead(t, filepath.Join(wb, "workbench.html")); got != "<html>original workbench</html>" {
		t.Fatalf("disabled sidebar not restored: %q", got)
	}
	if pathExists(filepath.Join(wb, "sidebar-panel")) {
		t.Fatal("sidebar payload survived disable")
	}
	if got := mustRead(t, filepath.Join(wb, "workbench-jetski-agent.html")); got != "<html>patched manager</html>" {
		t.Fatalf("manager should stay deployed: %q", got)
	}
}

func TestUpdateConfigTouchesOnlyConfig(t *testing.T) {
	root := writeInstallFixture(t, "1.18.3")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()
	ctx := context.Background()

	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}
	wb := workbenchDir(rr)
	entryBefore := mustRead(t, filepath.Join(wb, "workbench.html"))

	features := defaultFeatureConfig()
	features.Mermaid = false
	features.FontSizeEnabled = true
	features.FontSize = 16
	if err := eng.UpdateConfig(ctx, root, features, defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	raw := mustRead(t, filepath.Join(wb, "sidebar-panel", "config.json"))
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["mermaid"] != false || doc["fontSize"] != 16.0 {
		t.Fatalf("config not updated: %v", doc)
	}
	if got := mustRead(t, filepath.Join(wb, "workbench.html")); got != entryBefore {
		t.Fatal("update-config modified the entry file")
	}
}

func TestUpdateConfigNotInstalled(t *testing.T) {
	root := writeInstallFixture(t, "1.18.3")
	eng := testEngine()

	err := eng.UpdateConfig(context.Background(), root, defaultFeatureConfig(), defaultManagerFeatureConfig())
	var pe *PatchError
	if !errors.As(err, &pe) || pe.Kind != KindNotInstalled {
		t.Fatalf("expected not-installed error, got %v", err)
	}
}

func TestInstallInvalidDirectory(t *testing.T) {
	eng := testEngine()
	err := eng.Install(context.Background(), t.TempDir(), defaultFeatureConfig(), defaultManagerFeatureConfig())
	var pe *PatchError
	if !errors.As(err, &pe) || pe.Kind != KindInvalidInstallDirectory {
		t.Fatalf("expected invalid-install-directory, got %v", err)
	}
}

func TestInstallPermissionDeniedWithoutElevation(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := writeInstallFixture(t, "1.18.2")
	rr := filepath.Join(root, "resources", "app")
	ext := extensionsDir(rr)
	if err := os.Chmod(ext, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(ext, 0o755) })

	eng := testEngine() // platform without elevation support
	err := eng.Install(context.Background(), root, defaultFeatureConfig(), defaultManagerFeatureConfig())
	var pe *PatchError
	if !errors.As(err, &pe) || pe.Kind != KindPermissionDenied {
		t.Fatalf("expected terminal permission-denied, got %v", err)
	}
}

func TestInstallPermissionDeniedRetriesPrivileged(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := writeInstallFixture(t, "1.18.2")
	rr := filepath.Join(root, "resources", "app")
	ext := extensionsDir(rr)
	if err := os.Chmod(ext, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(ext, 0o755) })

	var gotScript string
	var gotArgs []string
	eng := testEngine()
	eng.Platform = &platformSupport{
		name:        "test",
		searchRoots: func() []string { return nil },
		canElevate:  true,
		elevate: func(_ context.Context, script string, args []string, _ string) error {
			gotScript = script
			gotArgs = args
			return nil
		},
	}

	if err := eng.Install(context.Background(), root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}
	if gotScript == "" {
		t.Fatal("privileged flow was not invoked")
	}
	if filepath.Base(gotScript) != "agpatch-privileged.en.sh" {
		t.Fatalf("locale en-US should select the English helper, got %s", gotScript)
	}
	want := []string{
		"--mode", "install",
		"--app-path", rr,
		"--cascade-enabled", "true",
		"--manager-enabled", "true",
	}
	if len(gotArgs) != len(want) {
		t.Fatalf("helper args = %v", gotArgs)
	}
	for i := range want {
		if gotArgs[i] != want[i] {
			t.Fatalf("helper args[%d] = %q, want %q", i, gotArgs[i], want[i])
		}
	}
	// The staging dir must be cleaned up after the helper returns.
	if pathExists(filepath.Dir(gotScript)) {
		t.Fatal("staging dir not removed")
	}
}

func TestInstallSystemOwnedPrefixSkipsDirectAttempt(t *testing.T) {
	root := writeInstallFixture(t, "1.18.2")
	rr := filepath.Join(root, "resources", "app")

	elevated := false
	eng := testEngine()
	eng.Platform = &platformSupport{
		name:           "test",
		searchRoots:    func() []string { return nil },
		systemPrefixes: []string{filepath.Dir(root) + string(os.PathSeparator)},
		canElevate:     true,
		elevate: func(_ context.Context, _ string, args []string, _ string) error {
			elevated = true
			return nil
		},
	}

	if err := eng.Install(context.Background(), root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}
	if !elevated {
		t.Fatal("system-owned prefix should go straight to the privileged flow")
	}
	// Direct deployment must not have happened.
	if got := mustRead(t, filepath.Join(extensionsDir(rr), "cascade-panel.html")); got != "<html>original cascade</html>" {
		t.Fatal("direct deployment ran despite system-owned prefix")
	}
}

func TestUninstallPassesDisabledFlagsToHelper(t *testing.T) {
	root := writeInstallFixture(t, "1.18.2")

	var gotArgs []string
	eng := testEngine()
	eng.Platform = &platformSupport{
		name:           "test",
		searchRoots:    func() []string { return nil },
		systemPrefixes: []string{filepath.Dir(root) + string(os.PathSeparator)},
		canElevate:     true,
		elevate: func(_ context.Context, _ string, args []string, _ string) error {
			gotArgs = args
			return nil
		},
	}
	if err := eng.Uninstall(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if len(gotArgs) < 2 || gotArgs[0] != "--mode" || gotArgs[1] != "uninstall" {
		t.Fatalf("helper args = %v", gotArgs)
	}
}

func TestUninstallWithoutWorkbenchTree(t *testing.T) {
	// Older builds ship no out/.../workbench directory at all. Uninstall
	// must still restore the legacy sidebar instead of failing on the
	// absent tree.
	root := t.TempDir()
	rr := filepath.Join(root, "resources", "app")
	ext := filepath.Join(rr, "extensions", "antigravity")
	mustWrite(t, filepath.Join(ext, "cascade-panel.html"), "<html>patched cascade</html>")
	mustWrite(t, filepath.Join(ext, "cascade-panel.html.bak"), "<html>original cascade</html>")
	mustWrite(t, filepath.Join(ext, "cascade-panel", "config.json"), "{}")

	eng := testEngine()
	if err := eng.Uninstall(context.Background(), root); err != nil {
		t.Fatalf("uninstall without workbench tree: %v", err)
	}
	if got := mustRead(t, filepath.Join(ext, "cascade-panel.html")); got != "<html>original cascade</html>" {
		t.Fatalf("legacy entry not restored: %q", got)
	}
	for _, leftover := range []string{
		filepath.Join(ext, "cascade-panel"),
		filepath.Join(ext, "cascade-panel.html.bak"),
	} {
		if pathExists(leftover) {
			t.Fatalf("leftover after uninstall: %s", leftover)
		}
	}
}

func TestElevationFailureNamesInstall(t *testing.T) {
	root := writeInstallFixture(t, "1.18.2")
	rr := filepath.Join(root, "resources", "app")

	eng := testEngine()
	eng.Platform = &platformSupport{
		name:           "test",
		searchRoots:    func() []string { return nil },
		systemPrefixes: []string{filepath.Dir(root) + string(os.PathSeparator)},
		canElevate:     true,
		elevate: func(_ context.Context, _ string, _ []string, _ string) error {
			return patchErr(KindElevationNonZeroExit, "patchBackend.errors.privilegedExitCode",
				map[string]string{"code": "3", "output": ""}, nil)
		},
	}

	err := eng.Install(context.Background(), root, defaultFeatureConfig(), defaultManagerFeatureConfig())
	var pe *PatchError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a classified error, got %v", err)
	}
	if pe.Kind != KindElevationNonZeroExit {
		t.Fatalf("cause kind lost in wrapping: %v", pe.Kind)
	}
	if pe.Key != "patchBackend.errors.privilegedScriptFailed" {
		t.Fatalf("key = %q", pe.Key)
	}
	if pe.Vars["path"] != rr {
		t.Fatalf("error does not name the install: %q", pe.Vars["path"])
	}
	if !strings.Contains(pe.Vars["error"], "3") {
		t.Fatalf("cause detail lost: %q", pe.Vars["error"])
	}
}

func TestStatusReportsInstallAndDrift(t *testing.T) {
	root := writeInstallFixture(t, "1.18.3")
	rr := filepath.Join(root, "resources", "app")
	eng := testEngine()
	ctx := context.Background()

	st, err := eng.Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if st.Installed() {
		t.Fatal("fresh install reported as patched")
	}

	if err := eng.Install(ctx, root, defaultFeatureConfig(), defaultManagerFeatureConfig()); err != nil {
		t.Fatal(err)
	}
	st, err = eng.Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Installed() {
		t.Fatal("installed patch not reported")
	}
	for _, sub := range st.Subsystems {
		if sub.Installed && sub.Drifted {
			t.Fatalf("freshly deployed %s reported drifted", sub.Name)
		}
	}

	// Manually editing a deployed entry must show up as drift.
	mustWrite(t, filepath.Join(workbenchDir(rr), "workbench.html"), "<html>tampered</html>")
	st, err = eng.Status(root)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, sub := range st.Subsystems {
		if sub.Name == "sidebar (modern)" {
			found = true
			if !sub.Drifted {
				t.Fatal("tampered entry not reported as drifted")
			}
		}
	}
	if !found {
		t.Fatal("modern sidebar subsystem missing from status")
	}
}
