package agpatch

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestPatchErrorKindMatching(t *testing.T) {
	err := patchErr(KindPermissionDenied, "patchBackend.errors.permissionDeniedDir",
		map[string]string{"path": "/opt/x"}, nil)

	if !errors.Is(err, &PatchError{Kind: KindPermissionDenied}) {
		t.Fatal("bare-kind sentinel should match")
	}
	if errors.Is(err, &PatchError{Kind: KindFilesystemIO}) {
		t.Fatal("wrong kind matched")
	}

	wrapped := fmt.Errorf("install failed: %w", err)
	var pe *PatchError
	if !errors.As(wrapped, &pe) || pe.Kind != KindPermissionDenied {
		t.Fatal("errors.As through wrapping failed")
	}
}

func TestPatchErrorMessage(t *testing.T) {
	err := patchErr(KindFilesystemIO, "patchBackend.errors.writeFileFailed",
		map[string]string{"path": "/opt/x", "error": "disk full"}, errors.New("disk full"))
	msg := err.Error()
	for _, want := range []string{"patchBackend.errors.writeFileFailed", "path=/opt/x", "disk full"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestIsPermissionError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"classified kind", patchErr(KindPermissionDenied, "k", nil, nil), true},
		{"os.ErrPermission", fmt.Errorf("x: %w", os.ErrPermission), true},
		{"message permission denied", errors.New("open /usr/x: permission denied"), true},
		{"message not permitted", errors.New("operation not permitted"), true},
		{"message read-only fs", errors.New("mkdir /usr/x: read-only file system"), true},
		{"unrelated", errors.New("no such file or directory"), false},
		{"other kind", patchErr(KindFilesystemIO, "k", nil, nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isPermissionError(tc.err); got != tc.want {
				t.Fatalf("isPermissionError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
