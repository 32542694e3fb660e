// Package patch makes idempotent structural edits to line-oriented
// configuration files (mkinitcpio hook list, GRUB defaults, pacman repos).
// Edits rewrite the file atomically and never touch unrelated content.
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Outcome reports what EnsureToken did. AnchorFound is false when the file
// had neither the presence token nor the anchor; callers decide whether that
// is acceptable, it is not reported as an error here.
type Outcome struct {
	Changed        bool
	AlreadyPresent bool
	AnchorFound    bool
}

// EnsureToken inserts the required token into the file at path by replacing
// the first occurrence of anchor with insertion. If presenceToken already
// occurs the file is left untouched.
func EnsureToken(path, anchor, insertion, presenceToken string) (Outcome, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(b)

	if strings.Contains(content, presenceToken) {
		return Outcome{AlreadyPresent: true, AnchorFound: true}, nil
	}
	if !strings.Contains(content, anchor) {
		return Outcome{}, nil
	}

	content = strings.Replace(content, anchor, insertion, 1)
	if err := writeAtomic(path, []byte(content)); err != nil {
		return Outcome{AnchorFound: true}, err
	}
	return Outcome{Changed: true, AnchorFound: true}, nil
}

// AppendIfMissing appends block to the file when presenceToken does not
// occur, creating the file if needed. Used for the fallback package
// repository section.
func AppendIfMissing(path, presenceToken, block string) (bool, error) {
	content := ""
	if b, err := os.ReadFile(path); err == nil {
		content = string(b)
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if strings.Contains(content, presenceToken) {
		return false, nil
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += block
	if err := writeAtomic(path, []byte(content)); err != nil {
		return false, err
	}
	return true, nil
}

// writeAtomic rewrites path via tmp + fsync + rename under an exclusive
// flock, so a crash mid-edit never leaves a truncated config file.
func writeAtomic(path string, data []byte) error {
	unlock, err := flockExclusive(path + ".lock")
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer unlock()

	mode := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return fsyncDir(filepath.Dir(path))
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	_ = f.Sync()
	return nil
}
