package blobstore

import (
	"bytes"
	"io"
	"sync"
)

// DefaultChunkSize is the chunk size an IncomingStream uses unless
// overridden with SetChunkSize.
const DefaultChunkSize = 8192

// valueState is the lifecycle state of an OutgoingValue: either openValue
// (appendable, unreadable) or finishedValue (readable, frozen).
type valueState interface {
	isValueState()
}

type openValue struct {
	buf bytes.Buffer
}

type finishedValue struct {
	data []byte
}

func (*openValue) isValueState()     {}
func (finishedValue) isValueState() {}

// OutgoingValue stages bytes on their way into the store. Data is appended
// through one or more OutgoingStreams while the value is open; Finish
// freezes it. Only a finished value can be written to a container.
type OutgoingValue struct {
	mu    sync.Mutex
	state valueState
}

// NewOutgoingValue returns an open, empty value.
func NewOutgoingValue() *OutgoingValue {
	return &OutgoingValue{state: &openValue{}}
}

// WriteBody returns a stream that appends to the value. It fails once the
// value is finished.
func (v *OutgoingValue) WriteBody() (*OutgoingStream, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.state.(*openValue); !ok {
		return nil, InvalidOperation("outgoing value already finished")
	}
	return &OutgoingStream{value: v}, nil
}

// Finish freezes the value. Finishing twice is an error.
func (v *OutgoingValue) Finish() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	open, ok := v.state.(*openValue)
	if !ok {
		return InvalidOperation("outgoing value already finished")
	}
	v.state = finishedValue{data: open.buf.Bytes()}
	return nil
}

// IsFinished reports whether Finish has been called.
func (v *OutgoingValue) IsFinished() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.state.(finishedValue)
	return ok
}

// Size returns the number of bytes staged so far.
func (v *OutgoingValue) Size() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch s := v.state.(type) {
	case *openValue:
		return s.buf.Len()
	case finishedValue:
		return len(s.data)
	}
	return 0
}

// Data returns a copy of the staged bytes. It fails unless the value is
// finished.
func (v *OutgoingValue) Data() ([]byte, error) {
	data, err := v.frozen()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// frozen returns the finished bytes without copying. The slice must not be
// modified.
func (v *OutgoingValue) frozen() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s, ok := v.state.(finishedValue)
	if !ok {
		return nil, InvalidOperation("outgoing value not finished yet")
	}
	return s.data, nil
}

func (v *OutgoingValue) append(p []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	open, ok := v.state.(*openValue)
	if !ok {
		return InvalidOperation("cannot write to finished outgoing value")
	}
	open.buf.Write(p)
	return nil
}

// OutgoingStream appends to an OutgoingValue. Closing the stream does not
// finish the value.
type OutgoingStream struct {
	value *OutgoingValue
}

// Write appends p to the value. It fails once the value is finished.
func (s *OutgoingStream) Write(p []byte) (int, error) {
	if err := s.value.append(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close is a no-op marker. The value stays open until Finish.
func (s *OutgoingStream) Close() error {
	return nil
}

// IncomingValue holds bytes read from the store. It can be consumed once,
// either whole or as a chunked stream.
type IncomingValue struct {
	mu       sync.Mutex
	data     []byte
	consumed bool
}

// NewIncomingValue wraps data. The value takes ownership of the slice.
func NewIncomingValue(data []byte) *IncomingValue {
	return &IncomingValue{data: data}
}

// Size returns the number of bytes in the value.
func (v *IncomingValue) Size() uint64 {
	return uint64(len(v.data))
}

// Consume returns all bytes and consumes the value.
func (v *IncomingValue) Consume() ([]byte, error) {
	return v.take()
}

// ConsumeStream consumes the value and returns a stream over its bytes.
func (v *IncomingValue) ConsumeStream() (*IncomingStream, error) {
	data, err := v.take()
	if err != nil {
		return nil, err
	}
	return newIncomingStream(data), nil
}

func (v *IncomingValue) take() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.consumed {
		return nil, InvalidOperation("incoming value already consumed")
	}
	v.consumed = true
	return v.data, nil
}

// IncomingStream is a pull cursor over the bytes of a consumed
// IncomingValue. Its position only moves forward; a drained stream cannot be
// rewound.
type IncomingStream struct {
	mu        sync.Mutex
	data      []byte
	pos       int
	chunkSize int
}

func newIncomingStream(data []byte) *IncomingStream {
	return &IncomingStream{data: data, chunkSize: DefaultChunkSize}
}

// SetChunkSize sets the size of chunks returned by ReadChunk. A size of zero
// or less restores DefaultChunkSize.
func (s *IncomingStream) SetChunkSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		n = DefaultChunkSize
	}
	s.chunkSize = n
}

// ReadChunk returns the next chunk, or io.EOF when the stream is exhausted.
func (s *IncomingStream) ReadChunk() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.data) {
		return nil, io.EOF
	}
	end := min(s.pos+s.chunkSize, len(s.data))
	chunk := s.data[s.pos:end]
	s.pos = end
	return chunk, nil
}

// ReadAll returns every remaining byte and moves the stream to its end.
func (s *IncomingStream) ReadAll() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	rest := s.data[s.pos:]
	s.pos = len(s.data)
	return rest
}

// Read implements io.Reader.
func (s *IncomingStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

// WriteTo implements io.WriterTo, writing the remaining bytes one chunk at a
// time.
func (s *IncomingStream) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		chunk, err := s.ReadChunk()
		if err == io.EOF {
			return total, nil
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

// IsEnd reports whether every byte has been read.
func (s *IncomingStream) IsEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos == len(s.data)
}

// Position returns the number of bytes read so far.
func (s *IncomingStream) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Size returns the total number of bytes in the stream.
func (s *IncomingStream) Size() int {
	return len(s.data)
}

// Close moves the stream to its end.
func (s *IncomingStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = len(s.data)
	return nil
}
