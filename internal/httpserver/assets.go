package httpserver

import (
	"embed"
	"io/fs"
	"mime"
	"path"
	"strings"
)

//go:embed web/index.html web/message.html
var embeddedWeb embed.FS

// DefaultAssets is the asset root compiled into the binary, used when no
// on-disk asset root is configured.
func DefaultAssets() fs.FS {
	sub, err := fs.Sub(embeddedWeb, "web")
	if err != nil {
		panic(err)
	}
	return sub
}

func contentTypeForName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	// Fallbacks first: devices ship sparse mime tables.
	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".js":
		return "text/javascript; charset=utf-8"
	case ".log", ".txt", ".csv":
		return "text/plain; charset=utf-8"
	case ".json":
		return "application/json"
	case ".bin", ".img":
		return "application/octet-stream"
	}
	return mime.TypeByExtension(ext)
}
