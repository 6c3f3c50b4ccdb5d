package agpatch

import "testing"

func TestIsSystemOwnedPath(t *testing.T) {
	darwin := &platformSupport{systemPrefixes: darwinSystemPrefixes}
	linux := &platformSupport{systemPrefixes: linuxSystemPrefixes}

	cases := []struct {
		platform *platformSupport
		path     string
		want     bool
	}{
		{darwin, "/Applications/Antigravity.app/Contents/Resources/app", true},
		{darwin, "/System/Applications/Antigravity.app/Contents/Resources/app", true},
		{darwin, "/Library/Application Support/Antigravity", true},
		{darwin, "/System/Volumes/Data/Antigravity", true},
		{darwin, "/Users/dev/Applications/Antigravity.app/Contents", false},
		{linux, "/usr/share/antigravity/resources/app", true},
		{linux, "/opt/Antigravity/resources/app", true},
		{linux, "/lib/antigravity", true},
		{linux, "/lib64/antigravity", true},
		{linux, "/var/lib/antigravity", true},
		{linux, "/snap/antigravity/current", true},
		{linux, "/home/dev/.local/share/antigravity", false},
	}
	for _, tc := range cases {
		if got := tc.platform.isSystemOwnedPath(tc.path); got != tc.want {
			t.Errorf("isSystemOwnedPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
