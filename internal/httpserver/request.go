package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var errBodyTooLarge = errors.New("request body too large")

// Request is a fully buffered incoming request. It is not modified after
// readRequest returns.
type Request struct {
	ID     string
	Method string
	Path   string
	Host   string
	Header http.Header
	Body   []byte
}

// readRequest buffers r's body to completion (bounded by limit).
func readRequest(w http.ResponseWriter, r *http.Request, limit int64) (*Request, error) {
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = uuid.New().String()
	}
	req := &Request{
		ID:     id,
		Method: r.Method,
		Path:   r.URL.Path,
		Host:   r.Host,
		Header: r.Header,
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	_ = r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, fmt.Errorf("%w: limit %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return req, fmt.Errorf("read body: %w", err)
	}
	req.Body = body
	return req, nil
}

// RequestLog is one JSON access-log line.
type RequestLog struct {
	Time       time.Time `json:"time"`
	ID         string    `json:"id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	Bytes      int       `json:"bytes"`
	DurationMs float64   `json:"duration_ms"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func logRequestJSON(entry RequestLog) {
	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("error marshaling log entry: %v", err)
		return
	}
	log.Println(string(b))
}
