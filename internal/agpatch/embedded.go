package agpatch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PatchFile is one payload file, addressed by its slash-separated path
// relative to the bundle root.
type PatchFile struct {
	Path string
	Data []byte
}

// AssetSource yields the full patch payload. The default source reads the
// compiled-in bundle; a dev override serves the same tree from disk.
type AssetSource func() ([]PatchFile, error)

// bundledPatchFiles reads the compiled-in payload.
func bundledPatchFiles() ([]PatchFile, error) {
	var files []PatchFile
	err := fs.WalkDir(patchBundle, "patches", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := patchBundle.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, PatchFile{
			Path: strings.TrimPrefix(path, "patches/"),
			Data: data,
		})
		return nil
	})
	if err != nil {
		return nil, patchErr(KindAssetBundleUnavailable,
			"patchBackend.errors.readPatchFileFailed",
			map[string]string{"error": err.Error()}, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// diskPatchFiles serves the payload from an on-disk directory. Used during
// patch development via AGPATCH_PATCHES_DIR.
func diskPatchFiles(dir string) AssetSource {
	return func() ([]PatchFile, error) {
		if !dirExists(dir) {
			return nil, patchErr(KindAssetBundleUnavailable,
				"patchBackend.errors.patchesDirNotFound",
				map[string]string{"path": dir}, nil)
		}
		var files []PatchFile
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, PatchFile{Path: filepath.ToSlash(rel), Data: data})
			return nil
		})
		if err != nil {
			return nil, patchErr(KindAssetBundleUnavailable,
				"patchBackend.errors.readPatchFileFailed",
				map[string]string{"path": dir, "error": err.Error()}, err)
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		return files, nil
	}
}

// activeAssetSource picks the dev override when configured, otherwise the
// embedded bundle.
func activeAssetSource() AssetSource {
	if PatchesDir != "" {
		debugf("using patches override dir: %s\n", PatchesDir)
		return diskPatchFiles(PatchesDir)
	}
	return bundledPatchFiles
}
