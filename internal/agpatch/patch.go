package agpatch

import (
	"context"
	"path/filepath"
)

// Engine drives the patch lifecycle against one Antigravity install.
// Platform and Assets are injectable for tests.
type Engine struct {
	Locale   string
	Assets   AssetSource
	Platform *platformSupport
}

func NewEngine(locale string) *Engine {
	return &Engine{
		Locale:   locale,
		Assets:   activeAssetSource(),
		Platform: currentPlatform(),
	}
}

// resolveRoots normalizes the user-supplied path and returns the install
// root plus its resource root.
func (e *Engine) resolveRoots(path string) (string, string, error) {
	root, ok := normalizeInstallRoot(path)
	if !ok {
		return "", "", patchErr(KindInvalidInstallDirectory,
			"patchBackend.errors.invalidInstallDir",
			map[string]string{"path": path}, nil)
	}
	return root, resourcesAppRoot(root), nil
}

// Install deploys the enabled subsystems into the install at path, creating
// backups of the replaced originals first. System-owned installs go straight
// to the privileged flow; otherwise a direct attempt is made and retried
// once through the privileged flow when it fails on permissions.
func (e *Engine) Install(ctx context.Context, path string, features FeatureConfig, manager ManagerFeatureConfig) error {
	_, rr, err := e.resolveRoots(path)
	if err != nil {
		return err
	}
	if e.Platform.canElevate && e.Platform.isSystemOwnedPath(rr) {
		debugf("system-owned install %s, using privileged flow\n", rr)
		return e.runPrivileged(ctx, modeInstall, rr, features, manager)
	}
	err = e.installDirect(rr, features, manager)
	if err != nil && isPermissionError(err) && e.Platform.canElevate {
		debugf("direct install failed on permissions (%v), elevating\n", err)
		return e.runPrivileged(ctx, modeInstall, rr, features, manager)
	}
	return err
}

// Uninstall restores every subsystem regardless of which variant or flags
// were active at install time. Checksum entries removed at install time are
// deliberately left removed.
func (e *Engine) Uninstall(ctx context.Context, path string) error {
	_, rr, err := e.resolveRoots(path)
	if err != nil {
		return err
	}
	if e.Platform.canElevate && e.Platform.isSystemOwnedPath(rr) {
		return e.runPrivileged(ctx, modeUninstall, rr, defaultFeatureConfig(), defaultManagerFeatureConfig())
	}
	err = e.uninstallDirect(rr)
	if err != nil && isPermissionError(err) && e.Platform.canElevate {
		return e.runPrivileged(ctx, modeUninstall, rr, defaultFeatureConfig(), defaultManagerFeatureConfig())
	}
	return err
}

// UpdateConfig rewrites the deployed config.json files without touching any
// other deployed file.
func (e *Engine) UpdateConfig(ctx context.Context, path string, features FeatureConfig, manager ManagerFeatureConfig) error {
	_, rr, err := e.resolveRoots(path)
	if err != nil {
		return err
	}
	if e.Platform.canElevate && e.Platform.isSystemOwnedPath(rr) {
		return e.runPrivileged(ctx, modeUpdateConfig, rr, features, manager)
	}
	err = e.updateConfigDirect(rr, features, manager)
	if err != nil && isPermissionError(err) && e.Platform.canElevate {
		return e.runPrivileged(ctx, modeUpdateConfig, rr, features, manager)
	}
	return err
}

// requireLayout verifies the two directories every operation touches.
func requireLayout(rr string) (ext, wb string, err error) {
	ext = extensionsDir(rr)
	wb = workbenchDir(rr)
	if !dirExists(ext) {
		return "", "", patchErr(KindMissingExpectedSubdirectory,
			"patchBackend.errors.missingSubdir",
			map[string]string{"path": ext}, nil)
	}
	if !dirExists(wb) {
		return "", "", patchErr(KindMissingExpectedSubdirectory,
			"patchBackend.errors.missingSubdir",
			map[string]string{"path": wb}, nil)
	}
	return ext, wb, nil
}

func (e *Engine) installDirect(rr string, features FeatureConfig, manager ManagerFeatureConfig) error {
	ext, wb, err := requireLayout(rr)
	if err != nil {
		return err
	}

	if dir, unwritable, err := firstUnwritableDir([]string{ext, wb, rr}); err != nil {
		return err
	} else if unwritable {
		return patchErr(KindPermissionDenied, "patchBackend.errors.permissionDeniedDir",
			map[string]string{"path": dir}, nil)
	}

	assets, err := e.Assets()
	if err != nil {
		return err
	}

	variant := detectSidebarVariant(rr)
	debugf("sidebar variant: %s\n", variant)

	if features.Enabled {
		sidebarCfg, err := renderSidebarConfig(features)
		if err != nil {
			return patchErr(KindManifestParse, "patchBackend.errors.writeConfigFailed",
				map[string]string{"error": err.Error()}, err)
		}
		switch variant {
		case VariantModern:
			if err := backupOriginal(filepath.Join(wb, "workbench.html")); err != nil {
				return err
			}
			if err := deploySubsystem(assets, wb, modernSidebarLayout, sidebarCfg); err != nil {
				return err
			}
			// a leftover legacy deployment from before an upgrade must not survive
			if err := restoreLegacySidebar(rr); err != nil {
				return err
			}
		default:
			if err := backupOriginal(filepath.Join(ext, "cascade-panel.html")); err != nil {
				return err
			}
			if err := deploySubsystem(assets, ext, legacySidebarLayout, sidebarCfg); err != nil {
				return err
			}
			if err := restoreModernSidebar(rr); err != nil {
				return err
			}
		}
	} else {
		if err := restoreLegacySidebar(rr); err != nil {
			return err
		}
		if err := restoreModernSidebar(rr); err != nil {
			return err
		}
	}

	if manager.Enabled {
		managerCfg, err := renderManagerConfig(manager)
		if err != nil {
			return patchErr(KindManifestParse, "patchBackend.errors.writeConfigFailed",
				map[string]string{"error": err.Error()}, err)
		}
		if err := backupOriginal(filepath.Join(wb, "workbench-jetski-agent.html")); err != nil {
			return err
		}
		if err := deploySubsystem(assets, wb, managerLayout, managerCfg); err != nil {
			return err
		}
	} else {
		if err := restoreManager(rr); err != nil {
			return err
		}
	}

	if features.Enabled || manager.Enabled {
		if err := sanitizeChecksums(rr); err != nil {
			return err
		}
	}
	return nil
}

// uninstallDirect requires only the extensions directory: older installs
// may lack the workbench tree entirely, and a missing directory simply has
// nothing to restore.
func (e *Engine) uninstallDirect(rr string) error {
	ext := extensionsDir(rr)
	if !dirExists(ext) {
		return patchErr(KindMissingExpectedSubdirectory,
			"patchBackend.errors.missingSubdir",
			map[string]string{"path": ext}, nil)
	}
	if dir, unwritable, err := firstUnwritableDir([]string{ext, workbenchDir(rr)}); err != nil {
		return err
	} else if unwritable {
		return patchErr(KindPermissionDenied, "patchBackend.errors.permissionDeniedDir",
			map[string]string{"path": dir}, nil)
	}
	if err := restoreLegacySidebar(rr); err != nil {
		return err
	}
	if err := restoreModernSidebar(rr); err != nil {
		return err
	}
	return restoreManager(rr)
}

func (e *Engine) updateConfigDirect(rr string, features FeatureConfig, manager ManagerFeatureConfig) error {
	ext, wb, err := requireLayout(rr)
	if err != nil {
		return err
	}

	updated := 0

	sidebarCfg, err := renderSidebarConfig(features)
	if err != nil {
		return patchErr(KindManifestParse, "patchBackend.errors.writeConfigFailed",
			map[string]string{"error": err.Error()}, err)
	}
	if dirExists(filepath.Join(ext, legacySidebarLayout.payloadDir)) {
		if err := writeSubsystemConfig(ext, legacySidebarLayout, sidebarCfg); err != nil {
			return err
		}
		updated++
	}
	if dirExists(filepath.Join(wb, modernSidebarLayout.payloadDir)) {
		if err := writeSubsystemConfig(wb, modernSidebarLayout, sidebarCfg); err != nil {
			return err
		}
		updated++
	}

	managerCfg, err := renderManagerConfig(manager)
	if err != nil {
		return patchErr(KindManifestParse, "patchBackend.errors.writeConfigFailed",
			map[string]string{"error": err.Error()}, err)
	}
	if dirExists(filepath.Join(wb, managerLayout.payloadDir)) {
		if err := writeSubsystemConfig(wb, managerLayout, managerCfg); err != nil {
			return err
		}
		updated++
	}

	if updated == 0 {
		return patchErr(KindNotInstalled, "patchBackend.errors.patchNotInstalled",
			map[string]string{"path": rr}, errNotInstalled)
	}
	return nil
}
