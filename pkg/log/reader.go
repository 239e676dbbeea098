package log

import (
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Reader reads client events back from a CBOR log file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
}

// NewReader opens a log file written by FileLogger.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
	}, nil
}

// Next returns the next event in the file, or io.EOF when exhausted.
func (r *Reader) Next() (Event, error) {
	var event Event
	if err := r.decoder.Decode(&event); err != nil {
		if err == io.EOF {
			return Event{}, io.EOF
		}
		return Event{}, err
	}
	return event, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
