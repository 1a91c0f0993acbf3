package httpserver

import (
	"context"
	"html"
	"io/fs"
	"log"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Templates renders status pages from the message template in the asset
// root. The template is read once and cached until Invalidate.
type Templates struct {
	assets fs.FS
	name   string
	token  *regexp.Regexp
	raw    string

	mu     sync.Mutex
	cached []byte
}

// NewTemplates uses name (e.g. "message.html") from assets; every
// case-insensitive occurrence of token in it is replaced by the message.
func NewTemplates(assets fs.FS, name, token string) *Templates {
	return &Templates{
		assets: assets,
		name:   name,
		token:  tokenPattern(token),
		raw:    token,
	}
}

func tokenPattern(token string) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(token))
}

// Render returns the template with msg (HTML-escaped) substituted.
func (t *Templates) Render(msg string) []byte {
	return t.token.ReplaceAllLiteral(t.load(), []byte(html.EscapeString(msg)))
}

func (t *Templates) load() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cached != nil {
		return t.cached
	}
	b, err := fs.ReadFile(t.assets, t.name)
	if err != nil {
		log.Printf("[assets] %s unavailable, using built-in page: %v", t.name, err)
		b = []byte("<!DOCTYPE html>\n<html><body><p>" + t.raw + "</p></body></html>\n")
	}
	t.cached = b
	return b
}

// Invalidate drops the cached template.
func (t *Templates) Invalidate() {
	t.mu.Lock()
	t.cached = nil
	t.mu.Unlock()
}

// Watch invalidates the cache whenever the template changes inside dir, the
// on-disk asset root. It returns when ctx is done.
func (t *Templates) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// watch the directory: editors often replace files by rename
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("[assets] watching %s for %s changes", dir, t.name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != t.name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				t.Invalidate()
				log.Printf("[assets] %s changed (%s), reloading", t.name, ev.Op)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[assets] watcher error: %v", err)
		}
	}
}
