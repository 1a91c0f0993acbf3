package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"launcher/internal/fsutil"
)

// ErrFailure marks a filesystem operation on the data root that failed for a
// reason other than the file being absent.
var ErrFailure = errors.New("storage failure")

// Dir is the writable data root. It implements fs.FS, fs.StatFS and
// fs.ReadFileFS so readers can treat it like the asset root.
type Dir struct {
	root string
}

// NewDir creates root if needed and returns a Dir confined to it.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: abs}, nil
}

func (d *Dir) Root() string {
	return d.root
}

func (d *Dir) abs(op, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	p, err := fsutil.JoinWithinRoot(d.root, name)
	if err != nil {
		return "", &fs.PathError{Op: op, Path: name, Err: err}
	}
	return p, nil
}

func (d *Dir) Open(name string) (fs.File, error) {
	p, err := d.abs("open", name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (d *Dir) Stat(name string) (fs.FileInfo, error) {
	p, err := d.abs("stat", name)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

func (d *Dir) ReadFile(name string) ([]byte, error) {
	p, err := d.abs("read", name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// WriteFile replaces name with data. The bytes go to a temp file next to the
// target which is fsynced and renamed over it, so readers see either the old
// or the new content.
func (d *Dir) WriteFile(name string, data []byte) error {
	p, err := d.abs("write", name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrFailure, name, err)
	}
	tmp := p + ".tmp"
	if err := writeSync(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %v", ErrFailure, name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", ErrFailure, name, err)
	}
	return nil
}

// Remove deletes name. A missing file is not an error; removed reports
// whether something was actually deleted.
func (d *Dir) Remove(name string) (removed bool, err error) {
	p, err := d.abs("remove", name)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: remove %s: %v", ErrFailure, name, err)
	}
	return true, nil
}

func writeSync(path string, data []byte) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
