package pipeline

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/publish"
)

// StageDraft copies the build output into <staging>/<dir>/ and writes the
// source-repository marker there. Any previous staging of the same draft is
// discarded first. It returns the staged draft root.
func StageDraft(outputDir, stagingDir string, dir draftpath.Directory, repository string) (string, error) {
	if st, err := os.Stat(outputDir); err != nil || !st.IsDir() {
		return "", derrors.BuildError("build output directory not found").
			WithContext("path", outputDir).Build()
	}
	dst := filepath.Join(stagingDir, string(dir))
	if !dir.Valid() || filepath.Dir(dst) != filepath.Clean(stagingDir) {
		return "", derrors.ValidationError("draft directory escapes the staging directory").
			WithContext("dir", string(dir)).WithContext("staging", stagingDir).Build()
	}
	if err := os.RemoveAll(dst); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "clear staging directory").
			WithContext("path", dst).Build()
	}
	if err := copyTree(outputDir, dst); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "stage build output").
			WithContext("from", outputDir).WithContext("to", dst).Build()
	}
	if err := publish.WriteMarker(dst, repository); err != nil {
		return "", derrors.WrapError(err, derrors.CategoryFileSystem, "write source repository marker").Build()
	}
	return dst, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o750)
		case d.Type().IsRegular():
			return copyFile(p, target)
		default:
			// Symlinks and special files are not published.
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
