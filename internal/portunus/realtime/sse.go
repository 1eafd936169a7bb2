package realtime

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// maxEventSize caps a single line and the joined data of one event.
const maxEventSize = 1 << 20

var ErrEventTooLarge = errors.New("realtime event exceeds size limit")

// message is one dispatched server-sent event.
type message struct {
	Event string
	Data  []byte
	ID    string
	Retry int // ms, 0 when absent
}

// sseReader decodes a text/event-stream body incrementally. Fields follow
// the EventSource rules: "event", "data" (multi-line joined with \n),
// "id", "retry"; lines starting with ':' are comments; a blank line
// dispatches.
type sseReader struct {
	sc  *bufio.Scanner
	max int
}

func newSSEReader(r io.Reader) *sseReader {
	return newSSEReaderSize(r, maxEventSize)
}

func newSSEReaderSize(r io.Reader, max int) *sseReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(16<<10, max)), max)
	return &sseReader{sc: sc, max: max}
}

// Next blocks until a complete event arrives. It returns io.EOF when the
// stream ends; a partial trailing event is discarded.
func (s *sseReader) Next() (message, error) {
	var (
		m       message
		data    bytes.Buffer
		hasData bool
	)
	for {
		line, err := s.readLine()
		if err != nil {
			return message{}, err
		}

		if len(line) == 0 {
			if !hasData {
				// Nothing to dispatch; reset the pending name.
				m = message{}
				continue
			}
			m.Data = data.Bytes()
			if m.Event == "" {
				m.Event = "message"
			}
			return m, nil
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "event":
			m.Event = string(value)
		case "data":
			if data.Len()+len(value)+1 > s.max {
				return message{}, ErrEventTooLarge
			}
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		case "id":
			if bytes.IndexByte(value, 0) < 0 {
				m.ID = string(value)
			}
		case "retry":
			if n, err := strconv.Atoi(string(value)); err == nil && n >= 0 {
				m.Retry = n
			}
		}
	}
}

// readLine returns one line without its terminator (\n or \r\n). The
// slice is only valid until the next call.
func (s *sseReader) readLine() ([]byte, error) {
	if s.sc.Scan() {
		return s.sc.Bytes(), nil
	}
	err := s.sc.Err()
	switch {
	case err == nil:
		return nil, io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		return nil, ErrEventTooLarge
	default:
		return nil, fmt.Errorf("read event stream: %w", err)
	}
}
