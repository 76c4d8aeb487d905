package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
)

const newFileMode os.FileMode = 0o644

// WriteAtomic replaces name with data. The content is written to a temp file
// in the same directory first, then renamed over the target.
func WriteAtomic(fs billy.Filesystem, name string, data []byte) error {
	dir := filepath.Dir(name)
	if dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	tmp, err := fs.TempFile(dir, ".faultcat-tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}

	// Keep the permissions of the file being replaced.
	mode := newFileMode
	if info, err := fs.Stat(name); err == nil {
		mode = info.Mode().Perm()
	}
	if ch, ok := fs.(billy.Change); ok {
		_ = ch.Chmod(tmpName, mode) // best-effort permission sync
	}

	if err := fs.Rename(tmpName, name); err != nil {
		_ = fs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", name, err)
	}
	return nil
}
