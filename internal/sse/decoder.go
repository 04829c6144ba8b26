// Package sse decodes text/event-stream bodies into event records.
//
// The decoder is fed raw network chunks. Bytes after the last newline are
// kept in a carry-over buffer and prefixed onto the next chunk, so records
// decode identically no matter where the chunk boundaries fall, including
// in the middle of a multi-byte UTF-8 sequence.
package sse

import (
	"bytes"
)

// DefaultEvent is the event type of a data line with no preceding event line
const DefaultEvent = "message"

// Record is one decoded event: the pending event type and its data payload
type Record struct {
	Event string
	Data  string
}

// Decoder splits a byte stream into records
type Decoder struct {
	buf   []byte
	event string
}

// NewDecoder creates a new decoder with an empty carry-over buffer
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the carry-over buffer and returns every record
// completed by it, in stream order.
func (d *Decoder) Feed(chunk []byte) []Record {
	d.buf = append(d.buf, chunk...)

	var records []Record
	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		if rec, ok := d.parseLine(d.buf[start : start+i]); ok {
			records = append(records, rec)
		}
		start += i + 1
	}

	if start > 0 {
		d.buf = append(d.buf[:0], d.buf[start:]...)
	}
	return records
}

// Flush decodes whatever is left in the carry-over buffer as a final line.
// It is called once the stream is exhausted.
func (d *Decoder) Flush() []Record {
	if len(d.buf) == 0 {
		return nil
	}
	line := d.buf
	d.buf = nil
	if rec, ok := d.parseLine(line); ok {
		return []Record{rec}
	}
	return nil
}

// Pending returns the number of buffered bytes not yet terminated by a newline
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func (d *Decoder) parseLine(line []byte) (Record, bool) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) == 0 || line[0] == ':' {
		return Record{}, false
	}

	field, value := line, []byte(nil)
	if i := bytes.IndexByte(line, ':'); i >= 0 {
		field = line[:i]
		value = bytes.TrimPrefix(line[i+1:], []byte{' '})
	}

	switch string(field) {
	case "event":
		d.event = string(value)
	case "data":
		event := d.event
		if event == "" {
			event = DefaultEvent
		}
		// The next record starts with a fresh event type.
		d.event = ""
		return Record{Event: event, Data: string(value)}, true
	}
	return Record{}, false
}
