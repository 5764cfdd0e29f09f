package wire

import (
	"encoding/gob"
	"io"
	"sync"
)

// Encoder writes envelopes to a stream. Writes are serialized so concurrent
// senders never interleave the bytes of two envelopes.
type Encoder struct {
	mu  sync.Mutex
	enc *gob.Encoder
}

// NewEncoder wraps w in an envelope encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: gob.NewEncoder(w)}
}

// Encode writes one envelope.
func (e *Encoder) Encode(msg Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(msg)
}

// Decoder reads envelopes from a stream. It is not safe for concurrent use;
// each connection has a single reader.
type Decoder struct {
	dec *gob.Decoder
}

// NewDecoder wraps r in an envelope decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: gob.NewDecoder(r)}
}

// Decode blocks until the next envelope arrives or the stream fails.
func (d *Decoder) Decode() (Message, error) {
	var msg Message
	if err := d.dec.Decode(&msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
