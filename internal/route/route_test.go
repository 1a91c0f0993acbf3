package route

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"launcher/internal/storage"
)

func newTestRouter(t *testing.T) (*Router, *storage.Dir) {
	t.Helper()
	data, err := storage.NewDir(filepath.Join(t.TempDir(), "mnt"))
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	assets := fstest.MapFS{
		"index.html":      {Data: []byte("<a href=\"http://IPADDR/\">home</a>")},
		"message.html":    {Data: []byte("<p>MESSAGE</p>")},
		"docs/guide.htm":  {Data: []byte("guide")},
		"docs/static.css": {Data: []byte("body{}")},
	}
	r := New(Options{
		Assets:     assets,
		Data:       data,
		AssetLabel: "/rom",
		DataLabel:  "/mnt",
		LogFiles:   []string{"time.log", "total_size.log"},
	})
	return r, data
}

func TestResolve(t *testing.T) {
	r, data := newTestRouter(t)
	if err := data.WriteFile("time.log", []byte("1ms\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := data.WriteFile("page.html", []byte("shadowed")); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []struct {
		url  string
		kind Kind
		loc  Location
		err  error
		path string
	}{
		{"/", ServeFile, Location{AssetRoot, "index.html", true}, nil, "/rom/index.html"},
		{"/index.html", ServeFile, Location{AssetRoot, "index.html", true}, nil, "/rom/index.html"},
		{"/docs/guide.htm", ServeFile, Location{AssetRoot, "docs/guide.htm", true}, nil, "/rom/docs/guide.htm"},
		{"/time.log", ServeFile, Location{DataRoot, "time.log", false}, nil, "/mnt/time.log"},
		{"/missing.log", Reject, Location{}, ErrNotFound, "/mnt/missing.log"},
		{"/page.html", Reject, Location{}, ErrNotFound, "/rom/page.html"},
		{"/docs/static.css", Reject, Location{}, ErrNotFound, "/mnt/docs/static.css"},
		{"/../etc/passwd", Reject, Location{}, ErrForbidden, "/../etc/passwd"},
		{"/docs/../../x.html", Reject, Location{}, ErrForbidden, "/docs/../../x.html"},
		{"/a\\b", Reject, Location{}, ErrForbidden, "/a\\b"},
	}
	for _, c := range cases {
		d := r.Route(c.url)
		if d.Kind != c.kind {
			t.Fatalf("%s: kind %v want %v (err %v)", c.url, d.Kind, c.kind, d.Err)
		}
		if c.err != nil && !errors.Is(d.Err, c.err) {
			t.Fatalf("%s: err %v want %v", c.url, d.Err, c.err)
		}
		if c.kind == ServeFile && d.Location != c.loc {
			t.Fatalf("%s: location %+v want %+v", c.url, d.Location, c.loc)
		}
		if d.Path != c.path {
			t.Fatalf("%s: path %q want %q", c.url, d.Path, c.path)
		}
	}
}

func TestResolveDirectoryIsNotFound(t *testing.T) {
	r, data := newTestRouter(t)
	if err := data.WriteFile("logs/a.log", []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if d := r.Route("/logs"); d.Kind != Reject || !errors.Is(d.Err, ErrNotFound) {
		t.Fatalf("directory should not be served: %+v", d)
	}
}

func TestRouteCommands(t *testing.T) {
	r, _ := newTestRouter(t)
	cases := map[string]Command{
		"/command/deleteAll": CmdDeleteAll,
		"/deleteAll":         CmdDeleteAll,
		"/command/reboot":    CmdReboot,
		"/close.html":        CmdReboot,
	}
	for url, want := range cases {
		d := r.Route(url)
		if d.Kind != RunCommand || d.Command != want {
			t.Fatalf("%s: %+v", url, d)
		}
	}
	if d := r.Route("/command/format"); d.Kind != Reject || !errors.Is(d.Err, ErrUnknownCommand) {
		t.Fatalf("unknown command: %+v", d)
	}
}

func TestRunDeleteAllIsIdempotent(t *testing.T) {
	r, data := newTestRouter(t)
	for _, name := range []string{"time.log", "total_size.log", "keep.log"} {
		if err := data.WriteFile(name, []byte("x")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		res, err := r.Run(CmdDeleteAll)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Terminate || !strings.Contains(res.Message, "Delete all") {
			t.Fatalf("run %d: %+v", i, res)
		}
	}
	for _, name := range []string{"time.log", "total_size.log"} {
		if _, err := data.Stat(name); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("%s should be gone: %v", name, err)
		}
	}
	if _, err := data.Stat("keep.log"); err != nil {
		t.Fatalf("keep.log should survive: %v", err)
	}
}

func TestRunReboot(t *testing.T) {
	r, _ := newTestRouter(t)
	res, err := r.Run(CmdReboot)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Terminate || res.Message != "Reboot!" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestIsHTML(t *testing.T) {
	for p, want := range map[string]bool{
		"index.html":    true,
		"a/b.HTM":       true,
		"x.html/y.js":   false,
		"notes.txt":     false,
		"html":          false,
		"archive.htmlx": false,
	} {
		if got := IsHTML(p); got != want {
			t.Fatalf("IsHTML(%q) = %v", p, got)
		}
	}
}
