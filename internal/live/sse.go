package live

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// Frame is one dispatched server-sent event.
type Frame struct {
	Event string
	Data  string
	ID    string
	Retry time.Duration
}

// Reader parses a text/event-stream body into frames.
type Reader struct {
	r      *bufio.Reader
	lastID string
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Reset switches the reader to a new body, keeping the last event id so a
// reconnect can resume from it.
func (r *Reader) Reset(body io.Reader) {
	r.r.Reset(body)
}

// Next blocks until a complete frame is available.
//
// Frames with neither data nor a retry hint are skipped. A partial frame at the
// end of the stream is dropped and [io.EOF] is returned.
func (r *Reader) Next() (Frame, error) {
	var (
		frame   Frame
		data    []string
		hasData bool
	)

	for {
		line, err := r.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return Frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData || frame.Retry > 0 {
				frame.Data = strings.Join(data, "\n")
				frame.ID = r.lastID
				return frame, nil
			}
			frame = Frame{}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			frame.Event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
				frame.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// LastEventID returns the most recent id field seen on the stream.
func (r *Reader) LastEventID() string {
	return r.lastID
}
