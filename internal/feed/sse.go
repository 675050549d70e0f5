package feed

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log"
	"strings"
)

// maxEventSize bounds a single SSE line. An event with a longer line is
// dropped and the stream continues with the next event.
const maxEventSize = 1 << 20

// sseEvent is one dispatched server-sent event
type sseEvent struct {
	Name string
	Data []byte
}

// readEvents parses a text/event-stream and calls emit for every complete
// event. It returns the reader's error, or nil on clean EOF.
func readEvents(r io.Reader, emit func(sseEvent)) error {
	reader := bufio.NewReaderSize(r, 64*1024)

	var (
		name     string
		data     strings.Builder
		hasData  bool
		oversize bool
	)

	dispatch := func() {
		switch {
		case oversize:
			log.Printf("Feed: dropped %q event with a line over %d bytes", name, maxEventSize)
		case hasData:
			if name == "" {
				name = "message"
			}
			emit(sseEvent{Name: name, Data: []byte(data.String())})
		}
		name = ""
		data.Reset()
		hasData = false
		oversize = false
	}

	for {
		line, tooLong, err := readLine(reader)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil
		if eof && line == "" && !tooLong {
			return nil
		}

		switch {
		case tooLong:
			oversize = true
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")

			switch field {
			case "event":
				name = value
			case "data":
				if hasData {
					data.WriteByte('\n')
				}
				data.WriteString(value)
				hasData = true
			}
			// "id" and "retry" are ignored: reconnect delay is fixed
		}

		if eof {
			return nil
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxEventSize is consumed in full and reported as tooLong with no content.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxEventSize+2 {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		buf = bytes.TrimSuffix(buf, []byte("\n"))
		buf = bytes.TrimSuffix(buf, []byte("\r"))
		return string(buf), tooLong, err
	}
}
