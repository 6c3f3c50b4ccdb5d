package agpatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/schollz/progressbar/v3"
)

// patchMode is the operation the privileged helper performs.
type patchMode int

const (
	modeInstall patchMode = iota
	modeUninstall
	modeUpdateConfig
)

func (m patchMode) String() string {
	switch m {
	case modeUninstall:
		return "uninstall"
	case modeUpdateConfig:
		return "update-config"
	default:
		return "install"
	}
}

const (
	privilegedStatusFile = "privileged-status.txt"
	privilegedWaitLimit  = 15 * time.Minute
	privilegedPollEvery  = 500 * time.Millisecond
	stagingAttempts      = 8
)

// runPrivileged stages the full payload plus helper script into a private
// temp directory and executes the script at root privileges. The staging
// directory is removed unconditionally afterwards, the helper copies what
// it needs before exiting.
func (e *Engine) runPrivileged(ctx context.Context, mode patchMode, resourcesRoot string, features FeatureConfig, manager ManagerFeatureConfig) error {
	assets, err := e.Assets()
	if err != nil {
		return err
	}

	stage, err := allocateStagingDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(stage)

	if err := stageBundle(stage, assets); err != nil {
		return err
	}

	if mode != modeUninstall {
		if err := stageConfigs(stage, features, manager); err != nil {
			return err
		}
	}

	script := filepath.Join(stage, privilegedScriptName(e.Locale))
	if !fileExists(script) {
		return patchErr(KindScriptMissing, "patchBackend.errors.scriptMissing",
			map[string]string{"path": script}, nil)
	}
	if err := os.Chmod(script, 0o755); err != nil {
		return ioErr("patchBackend.errors.setScriptPermissionsFailed", script, err)
	}

	args := []string{
		"--mode", mode.String(),
		"--app-path", resourcesRoot,
		"--cascade-enabled", boolFlag(features.Enabled),
		"--manager-enabled", boolFlag(manager.Enabled),
	}
	statusPath := filepath.Join(stage, privilegedStatusFile)

	stepf("Running privileged %s for %s", mode, resourcesRoot)
	if err := e.Platform.elevate(ctx, script, args, statusPath); err != nil {
		// Every elevated-run failure is surfaced against the install it
		// targeted; the classified kind of the cause is kept for callers.
		kind := KindElevationInvocationFailed
		detail := errDetail(err)
		var pe *PatchError
		if errors.As(err, &pe) {
			kind = pe.Kind
			detail = renderError(e.Locale, pe)
		}
		return patchErr(kind, "patchBackend.errors.privilegedScriptFailed",
			map[string]string{"path": resourcesRoot, "error": detail}, err)
	}
	return nil
}

// privilegedScriptName picks the helper matching the user's language so
// its terminal output is readable during the password prompt.
func privilegedScriptName(locale string) string {
	if isZhLocale(locale) {
		return "agpatch-privileged.sh"
	}
	return "agpatch-privileged.en.sh"
}

// allocateStagingDir creates a fresh private directory under the system
// temp dir, retrying with a new name a bounded number of times.
func allocateStagingDir() (string, error) {
	base := os.TempDir()
	var lastErr error
	for attempt := 0; attempt < stagingAttempts; attempt++ {
		name := fmt.Sprintf("agpatch-privileged-%d-%d-%d", os.Getpid(), time.Now().UnixNano(), attempt)
		dir := filepath.Join(base, name)
		if err := os.Mkdir(dir, 0o700); err != nil {
			lastErr = err
			continue
		}
		return dir, nil
	}
	return "", patchErr(KindFilesystemIO, "patchBackend.errors.allocateTempDirFailed",
		map[string]string{"path": base, "error": errDetail(lastErr)}, lastErr)
}

// stageBundle writes the complete payload into the staging directory.
func stageBundle(stage string, assets []PatchFile) error {
	bar := progressbar.NewOptions(len(assets),
		progressbar.OptionSetDescription("staging"),
		progressbar.OptionClearOnFinish(),
	)
	for _, f := range assets {
		dest := filepath.Join(stage, filepath.FromSlash(f.Path))
		if err := writeFileEnsureDir(dest, f.Data, 0o644); err != nil {
			return ioErr("patchBackend.errors.writeFileFailed", dest, err)
		}
		bar.Add(1)
	}
	bar.Finish()
	return nil
}

// stageConfigs renders the current configuration into every payload
// directory of the staged bundle so the helper script deploys them as-is.
func stageConfigs(stage string, features FeatureConfig, manager ManagerFeatureConfig) error {
	sidebarCfg, err := renderSidebarConfig(features)
	if err != nil {
		return patchErr(KindManifestParse, "patchBackend.errors.writeConfigFailed",
			map[string]string{"error": err.Error()}, err)
	}
	managerCfg, err := renderManagerConfig(manager)
	if err != nil {
		return patchErr(KindManifestParse, "patchBackend.errors.writeConfigFailed",
			map[string]string{"error": err.Error()}, err)
	}
	for dir, cfg := range map[string][]byte{
		legacySidebarLayout.payloadDir: sidebarCfg,
		modernSidebarLayout.payloadDir: sidebarCfg,
		managerLayout.payloadDir:       managerCfg,
	} {
		path := filepath.Join(stage, dir, "config.json")
		if err := writeFileEnsureDir(path, cfg, 0o644); err != nil {
			return ioErr("patchBackend.errors.writeConfigFailed", path, err)
		}
	}
	return nil
}

// elevateLinux runs the helper synchronously through pkexec, which brings
// up the polkit authentication dialog.
func elevateLinux(ctx context.Context, script string, args []string, _ string) error {
	if _, err := exec.LookPath("pkexec"); err != nil {
		return patchErr(KindElevationInvocationFailed, "patchBackend.errors.pkexecNotFound",
			nil, err)
	}
	cmdArgs := append([]string{"/bin/bash", script}, args...)
	cmd := exec.CommandContext(ctx, "pkexec", cmdArgs...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return patchErr(KindElevationNonZeroExit, "patchBackend.errors.privilegedExitCode",
				map[string]string{
					"code":   strconv.Itoa(exitErr.ExitCode()),
					"output": strings.TrimSpace(string(out)),
				}, err)
		}
		return patchErr(KindElevationInvocationFailed, "patchBackend.errors.executePkexecFailed",
			map[string]string{"error": errDetail(err)}, err)
	}
	return nil
}

// elevateDarwin opens a Terminal window running the helper under sudo and
// waits for the script to report its exit code through the status file.
// The detached terminal is the only way to give the user a proper password
// prompt from a GUI-launched process.
func elevateDarwin(ctx context.Context, script string, args []string, statusPath string) error {
	quoted := make([]string, 0, len(args)+2)
	quoted = append(quoted, "/bin/bash", shQuote(script))
	for _, a := range args {
		quoted = append(quoted, shQuote(a))
	}
	inner := fmt.Sprintf("sudo %s; echo $? > %s", strings.Join(quoted, " "), shQuote(statusPath))

	osa := fmt.Sprintf(`tell application "Terminal"
	activate
	do script "%s"
end tell`, strings.ReplaceAll(inner, `"`, `\"`))

	if err := exec.CommandContext(ctx, "osascript", "-e", osa).Run(); err != nil {
		err2 := patchErr(KindElevationInvocationFailed, "patchBackend.errors.invokeTerminalFailed",
			map[string]string{"error": errDetail(err)}, err)
		if strings.Contains(strings.ToLower(err.Error()), "not permitted") {
			err2.Key = "patchBackend.errors.macosAutomationHint"
		}
		return err2
	}

	return waitForStatusFile(ctx, statusPath, privilegedWaitLimit)
}

// waitForStatusFile blocks until the status file appears and carries an
// exit code, using a directory watch when available and falling back to
// plain polling. The hard timeout covers a user who closes the terminal
// without ever authenticating.
func waitForStatusFile(ctx context.Context, statusPath string, limit time.Duration) error {
	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(statusPath)); err == nil {
			events = make(chan fsnotify.Event, 16)
			go func() {
				for ev := range watcher.Events {
					select {
					case events <- ev:
					default:
					}
				}
			}()
		}
	}

	ticker := time.NewTicker(privilegedPollEvery)
	defer ticker.Stop()
	deadline := time.NewTimer(limit)
	defer deadline.Stop()

	check := func() (bool, error) {
		raw, err := os.ReadFile(statusPath)
		if err != nil {
			return false, nil
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return false, nil
		}
		code, err := strconv.Atoi(text)
		if err != nil {
			return true, patchErr(KindElevationNonZeroExit, "patchBackend.errors.readStatusFileFailed",
				map[string]string{"path": statusPath, "error": text}, nil)
		}
		if code != 0 {
			return true, patchErr(KindElevationNonZeroExit, "patchBackend.errors.privilegedExitCode",
				map[string]string{"code": strconv.Itoa(code)}, nil)
		}
		return true, nil
	}

	for {
		select {
		case <-ctx.Done():
			return patchErr(KindElevationInvocationFailed, "patchBackend.errors.privilegedCanceled",
				nil, ctx.Err())
		case <-deadline.C:
			return patchErr(KindElevationTimedOut, "patchBackend.errors.terminalNotFinished",
				map[string]string{"path": statusPath}, nil)
		case ev := <-events:
			if ev.Name != statusPath {
				continue
			}
			if done, err := check(); done {
				return err
			}
		case <-ticker.C:
			if done, err := check(); done {
				return err
			}
		}
	}
}

// shQuote single-quotes s for /bin/sh.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
