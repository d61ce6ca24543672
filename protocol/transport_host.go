package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by calls on a closed HostTransport.
var ErrClosed = errors.New("protocol: transport closed")

// ResponseHandler observes every response as it arrives, before it is
// queued for ReceiveResponse.
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is one validated block from the firmware.
type Message struct {
	Sequence uint8
	Payload  []byte
}

// IsAck reports whether m carries no payload.
func (m *Message) IsAck() bool { return len(m.Payload) == 0 }

// HostTransport is the host end of the link. A command is sent with the
// current sequence and is complete once the firmware acknowledges it with
// the following one.
type HostTransport struct {
	port io.ReadWriteCloser

	seq    atomic.Uint32
	synced atomic.Bool

	input *FifoBuffer

	acks      chan *Message
	responses chan *Message

	mu      sync.Mutex
	handler ResponseHandler

	writeMu sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewHostTransport starts reading port in the background.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:      port,
		input:     NewFifoBuffer(1024),
		acks:      make(chan *Message, 4),
		responses: make(chan *Message, 64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	t.seq.Store(MessageDest)
	t.synced.Store(true)
	go t.readLoop()
	return t
}

// SendCommand sends one command and waits up to two seconds for its ack.
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, 2*time.Second)
}

func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	seq := uint8(t.seq.Load())
	block, err := AppendBlock(nil, seq, scratch.Result())
	if err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	}
	if n, err := t.port.Write(block); err != nil {
		return fmt.Errorf("write: %w", err)
	} else if n != len(block) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(block))
	}
	return t.awaitAck(NextSequence(seq), timeout)
}

func (t *HostTransport) awaitAck(want uint8, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case ack := <-t.acks:
			// a resync ack may carry the old sequence; keep waiting
			if ack.Sequence != want {
				continue
			}
			t.seq.Store(uint32(want))
			return nil
		case <-deadline.C:
			return fmt.Errorf("no ack for sequence 0x%02x after %v", want, timeout)
		case <-t.stop:
			return ErrClosed
		}
	}
}

// ReceiveResponse returns the oldest queued response.
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case m := <-t.responses:
		return m, nil
	case <-deadline.C:
		return nil, fmt.Errorf("no response after %v", timeout)
	case <-t.stop:
		return nil, ErrClosed
	}
}

// TryReceive returns a queued response without waiting. Responses to a
// command arrive ahead of its ack, so after SendCommand returns they are
// all queued.
func (t *HostTransport) TryReceive() (*Message, bool) {
	select {
	case m := <-t.responses:
		return m, true
	default:
		return nil, false
	}
}

func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *HostTransport) readLoop() {
	defer close(t.done)
	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.input.Write(buf[:n])
			t.drain()
		}
		select {
		case <-t.stop:
			return
		default:
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			// read timeout on a serial port
			time.Sleep(time.Millisecond)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// drain extracts every complete block from the input ring.
func (t *HostTransport) drain() {
	data := t.input.Data()
	for len(data) > 0 {
		if !t.synced.Load() {
			var found bool
			if data, found = skipToSync(data); found {
				t.synced.Store(true)
			}
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		n, res := scan(data)
		if res == scanShort {
			break
		}
		if res == scanBad {
			t.synced.Store(false)
			continue
		}
		m := &Message{
			Sequence: data[MessagePositionSeq],
			Payload:  append([]byte(nil), data[MessageHeaderSize:n-MessageTrailerSize]...),
		}
		data = data[n:]
		t.route(m)
	}
	if used := t.input.Available() - len(data); used > 0 {
		t.input.Pop(used)
	}
}

func (t *HostTransport) route(m *Message) {
	if m.IsAck() {
		select {
		case t.acks <- m:
		default:
		}
		return
	}
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		p := append([]byte(nil), m.Payload...)
		if id, err := DecodeVLQUint(&p); err == nil {
			_ = h(uint16(id), &p)
		}
	}
	for {
		select {
		case t.responses <- m:
			return
		default:
		}
		// full: drop the oldest
		select {
		case <-t.responses:
		default:
		}
	}
}

// Close stops the reader and closes the port.
func (t *HostTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.stop)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.done
	})
	return err
}

// Reset restarts the sequence at 0x10 and drops everything queued.
func (t *HostTransport) Reset() {
	t.seq.Store(MessageDest)
	t.synced.Store(true)
	for {
		select {
		case <-t.acks:
		case <-t.responses:
		default:
			return
		}
	}
}

// Sequence returns the sequence the next command will carry.
func (t *HostTransport) Sequence() uint8 { return uint8(t.seq.Load()) }
