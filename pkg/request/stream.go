package request

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// StreamDone terminates an event stream.
const StreamDone = "[DONE]"

const dataPrefix = "data: "

// UndecodableError carries the joined stream text when no JSON value could be recovered.
type UndecodableError struct {
	Raw string
}

func (e *UndecodableError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("stream holds no JSON value: %q", raw)
}

// DecodeStream reassembles one JSON value from a "data: " framed response.
// Framed lines contribute their payload, other non-blank lines contribute their
// trimmed text. The joined text is tried as a whole, then the window between
// the first '{' and the last '}', then each chunk on its own.
func DecodeStream(r io.Reader) (json.RawMessage, error) {
	var chunks []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)
	for sc.Scan() {
		line := sc.Text()
		var chunk string
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, dataPrefix):
			chunk = line[len(dataPrefix):]
		default:
			chunk = strings.TrimSpace(line)
		}
		if chunk == StreamDone {
			continue
		}
		chunks = append(chunks, chunk)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	raw := strings.Join(chunks, "")
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw), nil
	}

	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		if window := raw[start : end+1]; json.Valid([]byte(window)) {
			return json.RawMessage(window), nil
		}
	}

	for _, c := range chunks {
		if json.Valid([]byte(c)) {
			return json.RawMessage(c), nil
		}
	}

	return nil, &UndecodableError{Raw: raw}
}

// EncodeStream writes payload as "data: " frames of at most size bytes,
// followed by the terminating frame.
func EncodeStream(w io.Writer, payload []byte, size int) error {
	if size <= 0 {
		size = len(payload)
	}
	var buf bytes.Buffer
	for len(payload) > 0 {
		n := size
		if n > len(payload) {
			n = len(payload)
		}
		buf.Reset()
		buf.WriteString(dataPrefix)
		buf.Write(payload[:n])
		buf.WriteString("\n\n")
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
		if f, ok := w.(interface{ Flush() }); ok {
			f.Flush()
		}
		payload = payload[n:]
	}
	_, err := io.WriteString(w, dataPrefix+StreamDone+"\n\n")
	return err
}
