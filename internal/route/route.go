package route

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"launcher/internal/fsutil"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("path escapes its root")
	ErrUnknownCommand = errors.New("unknown command")
)

// Root names one of the two storage areas a URL can map to.
type Root uint8

const (
	AssetRoot Root = iota // read-only bundled HTML ("ROM")
	DataRoot              // writable storage ("mount")
)

func (r Root) String() string {
	if r == AssetRoot {
		return "asset"
	}
	return "data"
}

// Location is a resolved file: which root, and the slash name inside it.
type Location struct {
	Root Root
	Name string
	HTML bool
}

// Kind tags a Decision.
type Kind uint8

const (
	ServeFile Kind = iota
	RunCommand
	Reject
)

// Decision is the outcome of routing a GET request.
type Decision struct {
	Kind     Kind
	Location Location // ServeFile
	Command  Command  // RunCommand
	Err      error    // Reject: ErrNotFound, ErrForbidden or ErrUnknownCommand
	Path     string   // attempted storage path, for messages
}

// DataFS is the writable root as the router sees it.
type DataFS interface {
	fs.StatFS
	Remove(name string) (bool, error)
}

type Options struct {
	Assets fs.FS
	Data   DataFS

	// AssetLabel and DataLabel prefix names in messages, e.g. "/rom" and "/mnt".
	AssetLabel string
	DataLabel  string

	// LogFiles are removed by CmdDeleteAll.
	LogFiles []string
}

// Router maps GET URLs to commands or files.
type Router struct {
	assets     fs.FS
	data       DataFS
	assetLabel string
	dataLabel  string
	logFiles   []string
}

func New(opts Options) *Router {
	return &Router{
		assets:     opts.Assets,
		data:       opts.Data,
		assetLabel: opts.AssetLabel,
		dataLabel:  opts.DataLabel,
		logFiles:   append([]string(nil), opts.LogFiles...),
	}
}

// Route consults the command table first and falls through to Resolve.
func (r *Router) Route(urlPath string) Decision {
	if cmd, ok := LookupCommand(urlPath); ok {
		return Decision{Kind: RunCommand, Command: cmd, Path: urlPath}
	}
	if strings.HasPrefix(urlPath, commandPrefix) {
		return Decision{Kind: Reject, Err: ErrUnknownCommand, Path: urlPath}
	}
	return r.Resolve(urlPath)
}

// Resolve maps a URL path to a file under the asset or data root and checks
// that it exists.
func (r *Router) Resolve(urlPath string) Decision {
	rel, err := fsutil.RelFromURL(urlPath)
	if err != nil {
		return Decision{Kind: Reject, Err: fmt.Errorf("%w: %v", ErrForbidden, err), Path: urlPath}
	}

	loc := Location{Root: DataRoot, Name: rel}
	switch {
	case rel == "":
		if urlPath != "/" && urlPath != "" {
			// "/." or "//" collapse to the data root directory itself
			return Decision{Kind: Reject, Err: ErrNotFound, Path: r.Display(loc)}
		}
		loc = Location{Root: AssetRoot, Name: "index.html", HTML: true}
	case IsHTML(rel):
		loc = Location{Root: AssetRoot, Name: rel, HTML: true}
	}

	st, err := fs.Stat(r.fsFor(loc.Root), loc.Name)
	if err != nil || st.IsDir() {
		return Decision{Kind: Reject, Err: ErrNotFound, Path: r.Display(loc)}
	}
	return Decision{Kind: ServeFile, Location: loc, Path: r.Display(loc)}
}

// ReadFile reads a resolved location.
func (r *Router) ReadFile(loc Location) ([]byte, error) {
	return fs.ReadFile(r.fsFor(loc.Root), loc.Name)
}

// Display renders loc the way messages show it, e.g. "/mnt/time.log".
func (r *Router) Display(loc Location) string {
	label := r.dataLabel
	if loc.Root == AssetRoot {
		label = r.assetLabel
	}
	if label == "" {
		label = "/"
	}
	return path.Join(label, loc.Name)
}

func (r *Router) fsFor(root Root) fs.FS {
	if root == AssetRoot {
		return r.assets
	}
	return r.data
}

// IsHTML reports whether the last segment of p names an HTML document.
func IsHTML(p string) bool {
	base := strings.ToLower(path.Base(p))
	return strings.HasSuffix(base, ".html") || strings.HasSuffix(base, ".htm")
}
