package agpatch

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
)

// printHelp prints the commands table
func printHelp() {
	colSuccess.Println("Usage: agpatch <command> [arguments]")
	colSuccess.Println("Run 'agpatch <command> -h' for command options")
	fmt.Println()
	color.Info.Println("Available Commands:")

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"version, --version", "", "Version information"},
		{"detect, d", "", "Locate the Antigravity install and show version/variant"},
		{"status, s", "[-path <dir>]", "Show which patch subsystems are installed"},
		{"install, i", "[options]", "Install or refresh the UI patches"},
		{"uninstall, r", "[-path <dir>]", "Restore all original files"},
		{"update-config, uc", "[options]", "Rewrite only the deployed config.json files"},
		{"edit, e", "[-path <dir>]", "Edit the feature configuration interactively"},
		{"clean", "[options]", "Clean conversation caches (Antigravity/Gemini/Codex/Claude)"},
		{"settings", "", "Manage agpatch configuration interactively"},
	}

	maxLen := 0
	for _, c := range cmds {
		length := len(c.Cmd) + len(c.Args)
		if c.Args != "" {
			length++
		}
		if length > maxLen {
			maxLen = length
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		var usageString string
		if c.Args != "" {
			usageString = fmt.Sprintf("  %s %s", c.Cmd, c.Args)
		} else {
			usageString = fmt.Sprintf("  %s", c.Cmd)
		}

		fmt.Print("  ")
		color.Bold.Print(c.Cmd)
		if c.Args != "" {
			fmt.Print(" ")
			color.Cyan.Print(c.Args)
		}

		pad := columnWidth - len(usageString)
		if pad < 1 {
			pad = 1
		}
		fmt.Print(strings.Repeat(" ", pad))

		color.Info.Println(c.Desc)
	}

	fmt.Println()
}

// resolveTargetPath picks the install path: explicit flag, then the saved
// config value, then platform auto-detection.
func resolveTargetPath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if SavedPath != "" {
		return SavedPath, nil
	}
	if root, ok := detectInstallRoot(currentPlatform()); ok {
		debugf("auto-detected install root: %s\n", root)
		return root, nil
	}
	return "", fmt.Errorf("no Antigravity install found; pass -path or set one via 'agpatch settings'")
}

// featureConfigFile is the optional on-disk shape accepted by -config.
type featureConfigFile struct {
	Sidebar *FeatureConfig        `json:"sidebar"`
	Manager *ManagerFeatureConfig `json:"manager"`
}

// loadFeatureConfigs merges an optional -config file over the defaults and
// applies the -no-sidebar / -no-manager switches last.
func loadFeatureConfigs(path string, noSidebar, noManager bool) (FeatureConfig, ManagerFeatureConfig, error) {
	features := defaultFeatureConfig()
	manager := defaultManagerFeatureConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return features, manager, fmt.Errorf("read config %s: %w", path, err)
		}
		var file featureConfigFile
		if err := json.Unmarshal(raw, &file); err != nil {
			return features, manager, fmt.Errorf("parse config %s: %w", path, err)
		}
		if file.Sidebar != nil {
			features = *file.Sidebar
		}
		if file.Manager != nil {
			manager = *file.Manager
		}
	}

	if noSidebar {
		features.Enabled = false
	}
	if noManager {
		manager.Enabled = false
	}
	return features, manager, nil
}

func reportError(err error) {
	colArrow.Print("-> ")
	colError.Printf("%s\n", renderError(Locale, err))
	if Debug {
		fmt.Fprintf(os.Stderr, "debug: %v\n", err)
	}
}

// Main is the CLI entrypoint for cmd/agpatch.
func Main() {
	// 1. CONTEXT AND SIGNAL SETUP
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. SIGNAL CHANNEL SETUP
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// 3. SIGNAL HANDLING GOROUTINE
	go func() {
		for {
			select {
			case sig := <-sigs:
				if isCriticalAtomic.Load() == 1 {
					// --- CRITICAL PHASE: Block 1st signal, force exit on 2nd ---
					colArrow.Print("\n-> ")
					colError.Printf("Patch deployment in progress. Press Ctrl+C AGAIN to force exit NOW.\n")

					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						colError.Printf("Forced immediate exit.")
						os.Exit(130)
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				} else {
					// --- NON-CRITICAL PHASE: Graceful Cancellation ---
					colArrow.Print("\n-> ")
					color.Danger.Printf("Received %v. Cancelling process gracefully\n", sig)
					cancel()

					time.Sleep(100 * time.Millisecond)

					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						color.Danger.Printf("Second interrupt received. Forcing immediate exit.")
						os.Exit(130)
					case <-time.After(2 * time.Second):
						colArrow.Print("\n-> ")
						color.Danger.Printf("Graceful shutdown timeout. Exiting.")
						os.Exit(0)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// 4. MAIN LOGIC EXECUTION
	if ctx.Err() != nil {
		return
	}

	if len(os.Args) < 2 {
		printHelp()
		return
	}

	cfg, err := loadConfig(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed: %v\n", err)
	}
	initConfig(cfg)

	// 5. INITIALIZE EXECUTOR
	RootExec = &Executor{
		Context:         ctx,
		ShouldRunAsRoot: true,
	}

	var exitCode int

	switch os.Args[1] {
	case "version", "--version":
		colNote.Printf("agpatch %s (%s) built %s\n", version, arch, buildDate)

	case "detect", "d":
		root, ok := detectInstallRoot(currentPlatform())
		if !ok {
			colArrow.Print("-> ")
			colWarn.Println("No Antigravity install found in the usual places.")
			exitCode = 1
			break
		}
		rr := resourcesAppRoot(root)
		colArrow.Print("-> ")
		colSuccess.Print("Install root: ")
		colNote.Printf("%s\n", root)
		if v, ok := readIdeVersion(rr); ok {
			fmt.Printf("   ideVersion:  %s\n", v)
		} else {
			fmt.Println("   ideVersion:  unknown")
		}
		fmt.Printf("   variant:     %s\n", detectSidebarVariant(rr))

	case "status", "s":
		statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
		var path = statusCmd.String("path", "", "Antigravity install directory.")
		if err := statusCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing status flags: %v\n", err)
			os.Exit(1)
		}

		target, err := resolveTargetPath(*path)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		eng := NewEngine(Locale)
		st, err := eng.Status(target)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}

		colArrow.Print("-> ")
		colSuccess.Print("Install root: ")
		colNote.Printf("%s\n", st.Root)
		if st.VersionOK {
			fmt.Printf("   ideVersion:  %s (%s layout)\n", st.Version, st.Variant)
		} else {
			fmt.Printf("   ideVersion:  unknown (%s layout)\n", st.Variant)
		}
		for _, sub := range st.Subsystems {
			state := "not installed"
			switch {
			case sub.Installed && sub.Drifted:
				state = "installed (payload drifted)"
			case sub.Installed:
				state = "installed"
			}
			fmt.Printf("   %-17s %s\n", sub.Name+":", state)
		}
		if !st.Installed() {
			exitCode = 1
		}

	case "install", "i":
		installCmd := flag.NewFlagSet("install", flag.ExitOnError)
		var path = installCmd.String("path", "", "Antigravity install directory.")
		var configFile = installCmd.String("config", "", "JSON file with sidebar/manager feature configuration.")
		var noSidebar = installCmd.Bool("no-sidebar", false, "Do not deploy the sidebar patch (remove it if present).")
		var noManager = installCmd.Bool("no-manager", false, "Do not deploy the manager patch (remove it if present).")
		if err := installCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing install flags: %v\n", err)
			os.Exit(1)
		}

		target, err := resolveTargetPath(*path)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		features, manager, err := loadFeatureConfigs(*configFile, *noSidebar, *noManager)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}

		// A half-deployed patch leaves Antigravity unbootable; finish or
		// roll back before honoring an interrupt.
		isCriticalAtomic.Store(1)
		eng := NewEngine(Locale)
		err = eng.Install(ctx, target, features, manager)
		isCriticalAtomic.Store(0)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		colArrow.Print("-> ")
		colSuccess.Println("Patches installed. Restart Antigravity to load them.")

	case "uninstall", "r":
		uninstallCmd := flag.NewFlagSet("uninstall", flag.ExitOnError)
		var path = uninstallCmd.String("path", "", "Antigravity install directory.")
		if err := uninstallCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing uninstall flags: %v\n", err)
			os.Exit(1)
		}

		target, err := resolveTargetPath(*path)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}

		isCriticalAtomic.Store(1)
		eng := NewEngine(Locale)
		err = eng.Uninstall(ctx, target)
		isCriticalAtomic.Store(0)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		colArrow.Print("-> ")
		colSuccess.Println("Original files restored.")

	case "update-config", "uc":
		ucCmd := flag.NewFlagSet("update-config", flag.ExitOnError)
		var path = ucCmd.String("path", "", "Antigravity install directory.")
		var configFile = ucCmd.String("config", "", "JSON file with sidebar/manager feature configuration.")
		if err := ucCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing update-config flags: %v\n", err)
			os.Exit(1)
		}

		target, err := resolveTargetPath(*path)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		features, manager, err := loadFeatureConfigs(*configFile, false, false)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}

		eng := NewEngine(Locale)
		if err := eng.UpdateConfig(ctx, target, features, manager); err != nil {
			reportError(err)
			os.Exit(1)
		}
		colArrow.Print("-> ")
		colSuccess.Println("Configuration updated.")

	case "edit", "e":
		editCmd := flag.NewFlagSet("edit", flag.ExitOnError)
		var path = editCmd.String("path", "", "Antigravity install directory.")
		if err := editCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing edit flags: %v\n", err)
			os.Exit(1)
		}

		target, err := resolveTargetPath(*path)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		eng := NewEngine(Locale)

		root, ok := normalizeInstallRoot(target)
		if !ok {
			reportError(fmt.Errorf("invalid install directory: %s", target))
			os.Exit(1)
		}
		rr := resourcesAppRoot(root)
		variant := detectSidebarVariant(rr)

		features, err := readDeployedFeatureConfig(sidebarConfigPath(rr, variant))
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		features.Enabled = fileExists(sidebarConfigPath(rr, variant))
		manager, err := readDeployedManagerConfig(managerConfigPath(rr))
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		manager.Enabled = fileExists(managerConfigPath(rr))

		features, manager, saved, err := runFeatureEditor(features, manager)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		if !saved {
			colNote.Println("No changes applied.")
			break
		}

		isCriticalAtomic.Store(1)
		err = eng.Install(ctx, target, features, manager)
		isCriticalAtomic.Store(0)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		colArrow.Print("-> ")
		colSuccess.Println("Configuration applied.")

	case "clean":
		cleanCmd := flag.NewFlagSet("clean", flag.ExitOnError)
		var all = cleanCmd.Bool("all", false, "Clean every supported product.")
		var antigravity = cleanCmd.Bool("antigravity", false, "Clean Antigravity trajectory/workspace caches.")
		var gemini = cleanCmd.Bool("gemini", false, "Clean Gemini CLI caches.")
		var codex = cleanCmd.Bool("codex", false, "Clean Codex session caches.")
		var claude = cleanCmd.Bool("claude", false, "Clean Claude Code project caches.")
		var force = cleanCmd.Bool("force", false, "Do not ask for confirmation.")
		var archive = cleanCmd.Bool("archive", false, "Write a .tar.zst snapshot before deleting.")
		if err := cleanCmd.Parse(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing clean flags: %v\n", err)
			os.Exit(1)
		}

		targets := CleanTargets{
			Antigravity: *all || *antigravity,
			Gemini:      *all || *gemini,
			Codex:       *all || *codex,
			Claude:      *all || *claude,
		}
		if !targets.hasAny() {
			fmt.Println("Usage: agpatch clean [-all] [-antigravity] [-gemini] [-codex] [-claude] [-force] [-archive]")
			os.Exit(1)
		}
		if err := RunClean(targets, *force, *archive, RootExec); err != nil {
			reportError(err)
			os.Exit(1)
		}

	case "settings":
		if err := handleSettingsCommand(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Settings command failed: %v\n", err)
			os.Exit(1)
		}

	default:
		printHelp()
		exitCode = 1
	}
	os.Exit(exitCode)
}
