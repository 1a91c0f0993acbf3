package httpserver

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"regexp"
	"sync"
	"time"

	"launcher/internal/config"
	"launcher/internal/route"
	"launcher/internal/storage"
	"launcher/internal/upload"
)

const messageTemplate = "message.html"

// Lifecycle is the handle to the running HTTP server. Terminate asks it to
// stop accepting connections and reboot the device; it must not block.
type Lifecycle interface {
	Terminate()
}

// LifecycleFunc adapts a plain function.
type LifecycleFunc func()

func (f LifecycleFunc) Terminate() { f() }

type Options struct {
	Config config.Config
	// Assets is the read-only asset root. Nil means DefaultAssets().
	Assets    fs.FS
	Data      *storage.Dir
	Lifecycle Lifecycle
}

type Server struct {
	cfg       config.Config
	router    *route.Router
	installer *upload.Installer
	templates *Templates
	hostToken *regexp.Regexp
	life      Lifecycle

	// one request is dispatched at a time
	mu sync.Mutex
}

func New(opts Options) (*Server, error) {
	if opts.Data == nil {
		return nil, errors.New("httpserver: data root is required")
	}
	if opts.Lifecycle == nil {
		return nil, errors.New("httpserver: lifecycle is required")
	}
	cfg := opts.Config
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	assets := opts.Assets
	assetLabel := cfg.AssetRoot
	if assets == nil {
		assets = DefaultAssets()
		assetLabel = "/rom"
	}
	return &Server{
		cfg: cfg,
		router: route.New(route.Options{
			Assets:     assets,
			Data:       opts.Data,
			AssetLabel: assetLabel,
			DataLabel:  opts.Data.Root(),
			LogFiles:   cfg.LogFiles,
		}),
		installer: upload.NewInstaller(opts.Data, cfg.ScriptName),
		templates: NewTemplates(assets, messageTemplate, cfg.MessageToken),
		hostToken: tokenPattern(cfg.HostToken),
		life:      opts.Lifecycle,
	}, nil
}

// Templates exposes the message template cache so callers can watch it.
func (s *Server) Templates() *Templates { return s.templates }

// Handler returns the server wrapped in the response hardening headers. The
// server is not mounted on a ServeMux: the mux would clean ".." out of paths
// that must be refused instead.
func (s *Server) Handler() http.Handler {
	return withHeaders(s)
}

func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var out *Outcome
	req, err := readRequest(w, r, s.cfg.MaxBodyBytes)
	if err != nil {
		out = s.fail(err, "Request rejected: "+err.Error())
	} else {
		s.mu.Lock()
		out = s.Dispatch(req)
		s.mu.Unlock()
	}
	w.Header().Set("X-Request-Id", req.ID)

	werr := out.write(w)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	entry := RequestLog{
		Time:       time.Now(),
		ID:         req.ID,
		Method:     req.Method,
		Path:       req.Path,
		Status:     out.Status,
		Bytes:      out.ContentLength(),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if out.err != nil {
		entry.Error = out.err.Error()
	}
	logRequestJSON(entry)

	if werr != nil {
		log.Printf("[req %s] write response: %v", req.ID, werr)
	}
	// the response is flushed; only now may the server go away
	if out.Terminate {
		log.Printf("[req %s] close the server... reboot this device...", req.ID)
		s.life.Terminate()
	}
}

// Dispatch routes one buffered request to its outcome.
func (s *Server) Dispatch(req *Request) *Outcome {
	switch req.Method {
	case http.MethodGet:
		return s.dispatchGet(req)
	case http.MethodPost:
		return s.dispatchPost(req)
	default:
		return s.fail(fmt.Errorf("%w: %s", ErrMethodNotAllowed, req.Method), "Not allowed method: "+req.Method)
	}
}

func (s *Server) dispatchGet(req *Request) *Outcome {
	d := s.router.Route(req.Path)
	switch d.Kind {
	case route.RunCommand:
		res, err := s.router.Run(d.Command)
		if err != nil {
			return s.fail(err, "Command failed: "+d.Command.String())
		}
		log.Printf("[command] %s: %s", d.Command, res.Message)
		out := s.message(http.StatusOK, res.Message)
		out.Terminate = res.Terminate
		return out

	case route.ServeFile:
		b, err := s.router.ReadFile(d.Location)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return s.fail(err, "Not found file: "+d.Path)
			}
			return s.fail(fmt.Errorf("%w: read %s: %v", storage.ErrFailure, d.Path, err), "Cannot read file: "+d.Path)
		}
		return s.file(d.Location, b, req.Host)

	default:
		switch {
		case errors.Is(d.Err, route.ErrNotFound):
			return s.fail(d.Err, "Not found file: "+d.Path)
		case errors.Is(d.Err, route.ErrUnknownCommand):
			return s.fail(d.Err, "Unknown command: "+d.Path)
		default:
			return s.fail(d.Err, "Not allowed path: "+d.Path)
		}
	}
}

func (s *Server) dispatchPost(req *Request) *Outcome {
	marker := upload.BoundaryMarker(req.Header.Get("Content-Type"), s.cfg.BoundaryToken)
	script, err := upload.Extract(req.Body, marker)
	if err != nil {
		return s.fail(err, "Install failed: "+err.Error())
	}
	rc, err := s.installer.Install(script)
	if err != nil {
		return s.fail(err, "Install failed: cannot write "+s.installer.Name())
	}
	log.Printf("[install] %s: %d bytes, blake2b-256 %s", rc.Name, rc.Size, rc.Blake2b)
	out := s.message(http.StatusOK, "Install finished!")
	out.Header.Set("X-Script-Blake2b", rc.Blake2b)
	return out
}
