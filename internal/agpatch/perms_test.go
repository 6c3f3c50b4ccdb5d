package agpatch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanWriteDirWritable(t *testing.T) {
	dir := t.TempDir()
	ok, err := canWriteDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("temp dir should be writable")
	}
	if pathExists(filepath.Join(dir, writeProbeName)) {
		t.Fatal("probe file left behind")
	}
}

func TestCanWriteDirReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	ok, err := canWriteDir(dir)
	if err != nil {
		t.Fatalf("permission failure must classify, not error: %v", err)
	}
	if ok {
		t.Fatal("read-only dir reported writable")
	}
}

func TestFirstUnwritableDirSkipsMissing(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	writable := t.TempDir()
	readonly := t.TempDir()
	if err := os.Chmod(readonly, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(readonly, 0o755) })

	dir, unwritable, err := firstUnwritableDir([]string{
		filepath.Join(writable, "does-not-exist"),
		writable,
		readonly,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !unwritable || dir != readonly {
		t.Fatalf("firstUnwritableDir = (%q, %v)", dir, unwritable)
	}
}

func TestFirstUnwritableDirAllWritable(t *testing.T) {
	_, unwritable, err := firstUnwritableDir([]string{t.TempDir(), t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if unwritable {
		t.Fatal("all-writable set reported an unwritable dir")
	}
}
