package upload

import (
	"bytes"
	"errors"
	"mime"
	"strings"
)

var (
	// ErrNoFilePart means the body never reached a part with a filename.
	// Malformed bodies (no boundary, no headers) end up here too.
	ErrNoFilePart = errors.New("no file part found in upload")
	// ErrEmptyFile means a file part was found but no content line followed it.
	ErrEmptyFile = errors.New("uploaded file is empty")
)

// State is the position of the extractor within a multipart document.
type State uint8

const (
	ContentBody   State = iota // outside any part we care about
	ContentHeader              // MIME headers of a part
	FileHeader                 // remaining headers of the file part
	FileBody                   // file content, captured
	numStates
)

func (s State) String() string {
	switch s {
	case ContentBody:
		return "ContentBody"
	case ContentHeader:
		return "ContentHeader"
	case FileHeader:
		return "FileHeader"
	case FileBody:
		return "FileBody"
	default:
		return "State(?)"
	}
}

type event uint8

const (
	evLine     event = iota // any other line
	evBoundary              // contains the boundary marker
	evBlank                 // empty line
	evFilePart              // Content-Disposition with a filename
	numEvents
)

type transition struct {
	next    State
	capture bool
}

// transitions[state][event]. Every cell is spelled out.
var transitions = [numStates][numEvents]transition{
	ContentBody: {
		evLine:     {ContentBody, false},
		evBoundary: {ContentHeader, false},
		evBlank:    {ContentBody, false},
		evFilePart: {ContentBody, false},
	},
	ContentHeader: {
		evLine:     {ContentHeader, false},
		evBoundary: {ContentHeader, false},
		evBlank:    {ContentBody, false},
		evFilePart: {FileHeader, false},
	},
	FileHeader: {
		evLine:     {FileHeader, false},
		evBoundary: {FileHeader, false},
		evBlank:    {FileBody, false},
		evFilePart: {FileHeader, false},
	},
	FileBody: {
		evLine:     {FileBody, true},
		evBoundary: {ContentHeader, false},
		evBlank:    {FileBody, true},
		evFilePart: {FileBody, true},
	},
}

// Extractor pulls the content of the embedded file part out of a fully
// buffered multipart/form-data body, one line at a time.
type Extractor struct {
	marker  []byte
	state   State
	sawFile bool
	out     bytes.Buffer
}

// NewExtractor returns an extractor that treats any line containing marker
// as a boundary line.
func NewExtractor(marker string) *Extractor {
	return &Extractor{marker: []byte(marker)}
}

func (e *Extractor) State() State { return e.state }

// Line feeds one line, without its terminator, through the state machine.
func (e *Extractor) Line(line []byte) {
	t := transitions[e.state][e.classify(line)]
	if t.capture {
		e.out.Write(line)
		e.out.WriteByte('\n')
	}
	if t.next == FileHeader {
		e.sawFile = true
	}
	e.state = t.next
}

func (e *Extractor) classify(line []byte) event {
	// A part header may legitimately contain the marker text (e.g. inside the
	// filename), so the disposition check wins while reading headers.
	if e.state == ContentHeader && isFileDisposition(line) {
		return evFilePart
	}
	switch {
	case len(e.marker) > 0 && bytes.Contains(line, e.marker):
		return evBoundary
	case len(line) == 0:
		return evBlank
	case isFileDisposition(line):
		return evFilePart
	}
	return evLine
}

func isFileDisposition(line []byte) bool {
	return bytes.Contains(line, []byte("Content-Disposition")) && bytes.Contains(line, []byte("filename"))
}

// Feed splits body into lines on "\n", dropping a trailing "\r" from each,
// and feeds them to Line.
func (e *Extractor) Feed(body []byte) {
	for len(body) > 0 {
		i := bytes.IndexByte(body, '\n')
		var line []byte
		if i < 0 {
			line, body = body, nil
		} else {
			line, body = body[:i], body[i+1:]
		}
		e.Line(bytes.TrimSuffix(line, []byte("\r")))
	}
}

// Result returns the captured file content.
func (e *Extractor) Result() ([]byte, error) {
	if !e.sawFile {
		return nil, ErrNoFilePart
	}
	if e.out.Len() == 0 {
		return nil, ErrEmptyFile
	}
	return e.out.Bytes(), nil
}

// Extract runs a fresh extractor over body.
func Extract(body []byte, marker string) ([]byte, error) {
	e := NewExtractor(marker)
	e.Feed(body)
	return e.Result()
}

// BoundaryMarker derives the line marker for a request. With a
// multipart Content-Type carrying a boundary parameter the marker is
// "--"+boundary; otherwise fallback is used as-is.
func BoundaryMarker(contentType, fallback string) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return fallback
	}
	if b := params["boundary"]; b != "" {
		return "--" + b
	}
	return fallback
}
