package fsutil

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrPathEscape  = errors.New("path escape")
)

// RelFromURL turns a URL path like "/a/b.log" into the slash-based relative
// name "a/b.log" ("" means root). Unlike a cleaner it refuses instead of
// normalising: any ".." segment, backslash or NUL makes the path invalid.
func RelFromURL(p string) (string, error) {
	if strings.ContainsAny(p, "\\\x00") {
		return "", ErrInvalidPath
	}
	rel := strings.TrimLeft(p, "/")
	if rel == "" {
		return "", nil
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", ErrPathEscape
		}
	}
	// only "." and duplicate slashes are left to collapse here
	rel = path.Clean(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// JoinWithinRoot returns an absolute filesystem path under root for a given rel
// path. It rejects escapes (..).
func JoinWithinRoot(rootAbs string, rel string) (string, error) {
	rel, err := RelFromURL(rel)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return rootAbs, nil
	}
	abs := filepath.Join(rootAbs, filepath.FromSlash(rel))
	absClean := filepath.Clean(abs)
	rootClean := filepath.Clean(rootAbs)
	if absClean != rootClean && !strings.HasPrefix(absClean, rootClean+string(filepath.Separator)) {
		return "", ErrPathEscape
	}
	return absClean, nil
}
