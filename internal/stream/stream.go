// Package stream adapts the pipeline's item queue into the byte stream the
// selector consumes, and recovers the original item from the selector's
// reported index.
//
// The central invariant: the n-th wire line ever handed to the reader is
// backed by the n-th entry of the mirror sequence. Adaptor serializes and
// mirrors an item in the same step, before touching the next one, so the
// invariant holds by construction no matter how producers interleaved.
package stream

import (
	"fmt"
	"io"
	"sync"

	nserrors "github.com/dkrall/noteseek/internal/errors"
	"github.com/dkrall/noteseek/internal/record"
)

// ErrIndexOutOfRange is returned when the selector reports an index the
// mirror sequence cannot satisfy. Under the invariant this never happens;
// seeing it means an ordering bug in the adaptor.
var ErrIndexOutOfRange = nserrors.New(nserrors.ErrCodeIndexOutOfRange,
	"selection index beyond mirrored items", nil)

// Adaptor is a pull-based reader over the shared item queue.
//
// It has exactly one byte consumer: Read, Peek and Advance must be
// called from a single goroutine. Resolve may run from another
// goroutine once the selector is done; the mutex orders it after the
// consumer's last append. A Read blocked on the queue holds the lock,
// so Resolve proceeds only once the queue is closed and drained.
type Adaptor struct {
	items <-chan record.Item

	mu     sync.Mutex
	buf    []byte
	cursor int

	mirror []record.Item
}

// NewAdaptor creates an Adaptor draining items. The channel is the
// pipeline's shared queue; its close marks end of stream.
func NewAdaptor(items <-chan record.Item) *Adaptor {
	return &Adaptor{items: items}
}

// Read implements io.Reader. It blocks until at least one item is
// available, then opportunistically drains whatever else is already
// queued, serializing and mirroring each item in one step. Arbitrarily
// small p is fine; an internal cursor tracks partial consumption.
// After the queue closes and the buffer drains, Read returns (0, io.EOF).
func (a *Adaptor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.fill(); err != nil {
		return 0, err
	}
	n := copy(p, a.buf[a.cursor:])
	a.cursor += n
	return n, nil
}

// Peek returns the buffered, not-yet-consumed bytes without copying,
// filling the buffer from the queue first if it is empty. The slice is
// valid until the next Read, Peek or Advance call.
func (a *Adaptor) Peek() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.fill(); err != nil {
		return nil, err
	}
	return a.buf[a.cursor:], nil
}

// Advance consumes n bytes previously returned by Peek.
func (a *Adaptor) Advance(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 0 || a.cursor+n > len(a.buf) {
		panic(fmt.Sprintf("stream: advance %d beyond %d buffered", n, len(a.buf)-a.cursor))
	}
	a.cursor += n
}

// fill ensures unconsumed bytes exist, blocking on the queue when the
// buffer is empty. Returns io.EOF once the queue is closed and drained.
func (a *Adaptor) fill() error {
	if a.cursor < len(a.buf) {
		return nil
	}

	// Everything buffered is consumed; reclaim instead of growing forever.
	a.buf = a.buf[:0]
	a.cursor = 0

	item, ok := <-a.items
	if !ok {
		return io.EOF
	}
	a.append(item)

	// Drain whatever is queued right now without blocking again.
	for {
		select {
		case item, ok := <-a.items:
			if !ok {
				return nil
			}
			a.append(item)
		default:
			return nil
		}
	}
}

// append serializes an item and mirrors it in the same step. This is the
// only place the mirror grows.
func (a *Adaptor) append(it record.Item) {
	a.buf = append(a.buf, record.WireLine(it)...)
	a.buf = append(a.buf, '\n')
	a.mirror = append(a.mirror, it)
}

// Emitted returns how many items have been serialized so far.
func (a *Adaptor) Emitted() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mirror)
}

// Resolve maps the selector's zero-based index back to the item backing
// that wire line. Call it only after the interaction with the selector
// has completed.
func (a *Adaptor) Resolve(index int) (record.Item, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.mirror) {
		return nil, fmt.Errorf("resolving index %d of %d mirrored items: %w",
			index, len(a.mirror), ErrIndexOutOfRange)
	}
	return a.mirror[index], nil
}
