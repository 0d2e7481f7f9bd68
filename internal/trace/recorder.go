package trace

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chaz8081/vknob/internal/session"
)

// Recorder appends records to a CBOR stream. It is safe for concurrent use
// and implements session.Observer.
type Recorder struct {
	mu      sync.Mutex
	w       io.WriteCloser
	enc     *cbor.Encoder
	closed  bool
	session string
	now     func() time.Time
}

// Create opens path for appending, creating it with mode 0644 if needed.
func Create(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewRecorder(f), nil
}

// NewRecorder writes records to w. Close closes w.
func NewRecorder(w io.WriteCloser) *Recorder {
	return &Recorder{w: w, enc: newEncoder(w), now: time.Now}
}

// Record writes r, stamping the time and current session if unset.
// Encoding errors are logged and otherwise ignored.
func (rec *Recorder) Record(r Record) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed {
		return
	}
	if r.Time.IsZero() {
		r.Time = rec.now()
	}
	if r.Session == "" {
		r.Session = rec.session
	}
	if err := rec.enc.Encode(r); err != nil {
		slog.Warn("[TRACE] write failed", "error", err)
	}
}

// SessionEvent records a controller event and tracks the active session
// so that link records can be attributed to it.
func (rec *Recorder) SessionEvent(ev session.Event) {
	id := ""
	if ev.Session != uuid.Nil {
		id = ev.Session.String()
	}

	rec.mu.Lock()
	switch ev.Kind {
	case session.EventConnected:
		rec.session = id
	case session.EventDisconnected:
		rec.session = ""
	}
	rec.mu.Unlock()

	rec.Record(Record{
		Time:    ev.Time,
		Session: id,
		Layer:   LayerSession,
		Kind:    string(ev.Kind),
		Keys:    uint8(ev.Keys),
		Err:     ev.Err,
	})
}

// LinkEvent records a link-layer event.
func (rec *Recorder) LinkEvent(kind string, handle uint16, data []byte) {
	rec.Record(Record{Layer: LayerLink, Kind: kind, Handle: handle, Data: data})
}

// Close flushes and closes the underlying writer. Later records are
// dropped. It is safe to call Close more than once.
func (rec *Recorder) Close() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed {
		return nil
	}
	rec.closed = true
	return rec.w.Close()
}

// Reader streams records from a trace file.
type Reader struct {
	r   io.ReadCloser
	dec *cbor.Decoder
}

// Open opens a trace file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReader(f), nil
}

// NewReader reads records from r. Close closes r.
func NewReader(r io.ReadCloser) *Reader {
	return &Reader{r: r, dec: newDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	return rec, nil
}

// Close closes the underlying reader.
func (r *Reader) Close() error {
	return r.r.Close()
}

var _ session.Observer = (*Recorder)(nil)
