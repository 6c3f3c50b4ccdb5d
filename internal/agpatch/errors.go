package agpatch

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrorKind classifies patch failures. The CLI uses the kind to decide
// exit codes and the i18n key to render a localized message.
type ErrorKind int

const (
	KindInvalidInstallDirectory ErrorKind = iota
	KindMissingExpectedSubdirectory
	KindPermissionDenied
	KindFilesystemIO
	KindManifestParse
	KindAssetBundleUnavailable
	KindScriptMissing
	KindElevationInvocationFailed
	KindElevationTimedOut
	KindElevationNonZeroExit
	KindNotInstalled
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInstallDirectory:
		return "invalid-install-directory"
	case KindMissingExpectedSubdirectory:
		return "missing-expected-subdirectory"
	case KindPermissionDenied:
		return "permission-denied"
	case KindFilesystemIO:
		return "filesystem-io"
	case KindManifestParse:
		return "manifest-parse"
	case KindAssetBundleUnavailable:
		return "asset-bundle-unavailable"
	case KindScriptMissing:
		return "script-missing"
	case KindElevationInvocationFailed:
		return "elevation-invocation-failed"
	case KindElevationTimedOut:
		return "elevation-timed-out"
	case KindElevationNonZeroExit:
		return "elevation-non-zero-exit"
	case KindNotInstalled:
		return "not-installed"
	default:
		return "unknown"
	}
}

// PatchError carries a machine-readable kind plus a message key and
// substitution variables. Engine code never renders user-facing text;
// rendering happens in the CLI via the locale tables.
type PatchError struct {
	Kind ErrorKind
	Key  string
	Vars map[string]string
	Err  error
}

func (e *PatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Key)
	if len(e.Vars) > 0 {
		keys := make([]string, 0, len(e.Vars))
		for k := range e.Vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, e.Vars[k]))
		}
		b.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *PatchError) Unwrap() error { return e.Err }

// Is allows errors.Is matching on a bare-kind sentinel, e.g.
// errors.Is(err, &PatchError{Kind: KindPermissionDenied}).
func (e *PatchError) Is(target error) bool {
	t, ok := target.(*PatchError)
	if !ok {
		return false
	}
	return t.Key == "" && t.Kind == e.Kind
}

func patchErr(kind ErrorKind, key string, vars map[string]string, cause error) *PatchError {
	return &PatchError{Kind: kind, Key: key, Vars: vars, Err: cause}
}

func ioErr(key string, path string, cause error) *PatchError {
	return patchErr(KindFilesystemIO, key, map[string]string{"path": path, "error": errDetail(cause)}, cause)
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// isPermissionError reports whether err stems from insufficient filesystem
// privileges, either as a classified PatchError or as a raw OS error.
// String matching covers causes that lost their errno through wrapping.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	var pe *PatchError
	if errors.As(err, &pe) && pe.Kind == KindPermissionDenied {
		return true
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, unix.EACCES) ||
		errors.Is(err, unix.EPERM) || errors.Is(err, unix.EROFS) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"permission denied", "operation not permitted", "read-only file system"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
