package sse

import (
	"context"
	"errors"
	"io"
)

const readChunkSize = 4096

// HandlerFunc is called once per decoded record
type HandlerFunc func(Record) error

// Stream reads r until EOF, decoding records and passing each to fn in
// arrival order. A non-nil error from fn stops the stream and is returned.
// Stream returns ctx.Err() when the context is canceled between reads.
func Stream(ctx context.Context, r io.Reader, fn HandlerFunc) error {
	dec := NewDecoder()
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			for _, rec := range dec.Feed(buf[:n]) {
				if herr := fn(rec); herr != nil {
					return herr
				}
			}
		}

		if errors.Is(err, io.EOF) {
			for _, rec := range dec.Flush() {
				if herr := fn(rec); herr != nil {
					return herr
				}
			}
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}
