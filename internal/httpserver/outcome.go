package httpserver

import (
	"errors"
	"html"
	"io/fs"
	"net/http"
	"strconv"

	"launcher/internal/route"
	"launcher/internal/upload"
)

// ErrMethodNotAllowed is returned for anything but GET and POST.
var ErrMethodNotAllowed = errors.New("method not allowed")

// Outcome is a composed response. Content-Length is always len(Body).
type Outcome struct {
	Status    int
	Header    http.Header
	Body      []byte
	Terminate bool // close the server and reboot once sent

	err error // for the access log only
}

func (o *Outcome) ContentLength() int { return len(o.Body) }

func (o *Outcome) write(w http.ResponseWriter) error {
	h := w.Header()
	for k, v := range o.Header {
		h[k] = v
	}
	h.Set("Content-Length", strconv.Itoa(o.ContentLength()))
	if o.Terminate {
		h.Set("Connection", "close")
	}
	w.WriteHeader(o.Status)
	if len(o.Body) == 0 {
		return nil
	}
	_, err := w.Write(o.Body)
	return err
}

// message renders msg into the message template.
func (s *Server) message(status int, msg string) *Outcome {
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	return &Outcome{Status: status, Header: h, Body: s.templates.Render(msg)}
}

// fail renders msg with the status err maps to.
func (s *Server) fail(err error, msg string) *Outcome {
	out := s.message(statusForError(err), msg)
	out.err = err
	return out
}

// file serves b. HTML documents get every host token replaced by host.
func (s *Server) file(loc route.Location, b []byte, host string) *Outcome {
	h := http.Header{}
	if loc.HTML {
		if host != "" {
			b = s.hostToken.ReplaceAllLiteral(b, []byte(html.EscapeString(host)))
		}
		h.Set("Content-Type", "text/html; charset=utf-8")
	} else if ct := contentTypeForName(loc.Name); ct != "" {
		h.Set("Content-Type", ct)
	}
	return &Outcome{Status: http.StatusOK, Header: h, Body: b}
}

// statusForError converts request errors into HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, route.ErrNotFound),
		errors.Is(err, route.ErrUnknownCommand),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, route.ErrForbidden),
		errors.Is(err, ErrMethodNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, upload.ErrNoFilePart),
		errors.Is(err, upload.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		// storage.ErrFailure and anything unexpected
		return http.StatusInternalServerError
	}
}
