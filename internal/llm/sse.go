package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

const readChunkSize = 4096

// LineDecoder turns arbitrarily split byte chunks into complete lines.
// The zero value is ready to use.
type LineDecoder struct {
	buf []byte
}

// Feed appends chunk and returns every line completed by it, in order,
// without the terminating "\n" or a trailing "\r".
func (d *LineDecoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, trimCR(d.buf[:i]))
		d.buf = d.buf[i+1:]
	}

	// Reclaim the consumed prefix once the buffer drains.
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	}
	return lines
}

// Flush returns the unterminated final line, if any, and resets the decoder.
func (d *LineDecoder) Flush() (string, bool) {
	if len(d.buf) == 0 {
		return "", false
	}
	line := trimCR(d.buf)
	d.buf = nil
	return line, true
}

// Buffered reports how many bytes are waiting for a newline.
func (d *LineDecoder) Buffered() int {
	return len(d.buf)
}

func trimCR(b []byte) string {
	return string(bytes.TrimSuffix(b, []byte{'\r'}))
}

// ReadLines drives a LineDecoder from r and calls fn for each line,
// including a final unterminated one. A read error other than io.EOF is
// returned wrapped in ErrStreamError. An error from fn stops reading and is
// returned as is.
func ReadLines(ctx context.Context, r io.Reader, fn func(line string) error) error {
	var dec LineDecoder
	chunk := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(chunk)
		if n > 0 {
			for _, line := range dec.Feed(chunk[:n]) {
				if err := fn(line); err != nil {
					return err
				}
			}
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if pending := dec.Buffered(); pending > 0 {
					return fmt.Errorf("%w: %v (%d bytes of an unfinished line lost)", ErrStreamError, readErr, pending)
				}
				return fmt.Errorf("%w: %v", ErrStreamError, readErr)
			}
			if line, ok := dec.Flush(); ok {
				return fn(line)
			}
			return nil
		}
	}
}
