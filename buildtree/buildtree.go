// Package buildtree provides the copy-on-demand writable duplicate of the
// source tree used by tests that must not mutate the original.
package buildtree

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Tree is a disposable full copy of a source tree. It is created lazily at
// most once per run and removed exactly once at run end.
type Tree struct {
	Root string

	log    log.Logger
	remove sync.Once
}

// Copy duplicates src into a fresh temporary directory and returns the
// resulting tree. Regular files, directories and symlinks are carried over
// with their permission bits; anything else (sockets, devices) is skipped.
func Copy(src string, logger log.Logger) (*Tree, error) {
	if logger == nil {
		logger = log.New()
	}

	root, err := os.MkdirTemp("", "pkgtest-buildtree-")
	if err != nil {
		return nil, fmt.Errorf("creating build tree directory: %w", err)
	}

	logger.Debug("Copying build tree", "src", src, "dst", root)
	if err := copyTree(src, root); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("copying build tree: %w", err)
	}

	return &Tree{Root: root, log: logger}, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.Mkdir(target, info.Mode().Perm())
		case info.Mode()&fs.ModeSymlink != 0:
			dest, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(dest, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Remove deletes the copied tree. Safe to call more than once; only the
// first call does the recursive delete.
func (t *Tree) Remove() error {
	var err error
	t.remove.Do(func() {
		t.log.Debug("Removing build tree", "root", t.Root)
		err = os.RemoveAll(t.Root)
	})
	return err
}
