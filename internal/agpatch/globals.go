package agpatch

import (
	"embed"
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/gookit/color"
)

// GLOBAL STATE
// We use a value of 1 for critical and 0 for non-critical/default.
var isCriticalAtomic atomic.Int32

// Global variables
var (
	Debug      bool
	Verbose    bool
	ConfigFile = "" // resolved in configPath() unless overridden
	Locale     string
	SavedPath  string
	PatchesDir string // dev override for the embedded bundle

	version   = "dev" // default version; overridden at build time
	arch      = runtime.GOARCH
	buildDate = "unknown" // overridden at build time

	errNotInstalled = errors.New("patch not installed")

	// Root executor for ad-hoc privileged removal (assigned in Main)
	RootExec *Executor

	//go:embed patches
	patchBundle embed.FS

	//go:embed locales/en-US.json locales/zh-CN.json
	localeAssets embed.FS
)

// Fixed product.json checksum entries that the patch invalidates. Antigravity
// refuses to start when a checksummed file no longer matches, so these keys
// are removed whenever any patch subsystem is enabled.
var checksumKeysToRemove = []string{
	"extensions/antigravity/cascade-panel.html",
	"vs/code/electron-browser/workbench/workbench.html",
	"vs/code/electron-browser/workbench/workbench-jetski-agent.html",
}

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
