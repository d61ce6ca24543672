package protocol

import "sync/atomic"

// CommandHandler decodes the arguments of command cmdID from *data and
// advances it past them.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the link. It validates incoming blocks,
// dispatches their commands in order, and acknowledges every block with
// the sequence it expects next. Responses reuse that sequence.
type Transport struct {
	synced  atomic.Bool
	nextSeq atomic.Uint32

	output  OutputBuffer
	handler CommandHandler
	onReset func()
	onFlush func()
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{output: output, handler: handler}
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	return t
}

// Receive consumes every complete block in input. A partial block is left
// for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	for len(data) > 0 {
		if !t.synced.Load() {
			var found bool
			if data, found = skipToSync(data); found {
				t.synced.Store(true)
				t.sendAck()
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
		seq := data[MessagePositionSeq]
		payload := data[MessageHeaderSize : n-MessageTrailerSize]
		data = data[n:]

		expect := uint8(t.nextSeq.Load())
		if seq == MessageDest && expect != MessageDest {
			// the host restarted its sequence
			expect = MessageDest
			t.nextSeq.Store(MessageDest)
			if t.onReset != nil {
				t.onReset()
			}
		}
		if seq == expect {
			t.nextSeq.Store(uint32(NextSequence(seq)))
			_ = t.dispatch(payload)
		}
		// a stale sequence is answered too; the ack doubles as a nak
		t.sendAck()
	}
	if used := input.Available() - len(data); used > 0 {
		input.Pop(used)
	}
}

// dispatch runs each command in payload. A handler error stops the rest of
// the block; a malformed id or a handler panic also drops sync.
func (t *Transport) dispatch(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.synced.Store(false)
		}
	}()
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			t.synced.Store(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(id), &payload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) sendAck() {
	seq := uint8(t.nextSeq.Load())
	crc := CRC16([]byte{MessageLengthMin, seq})
	t.output.Output([]byte{MessageLengthMin, seq, uint8(crc >> 8), uint8(crc), MessageValueSync})
	if t.onFlush != nil {
		t.onFlush()
	}
}

// EncodeFrame writes one block whose payload is produced by frameData.
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(t.nextSeq.Load())})
	frameData(t.output)
	t.output.Update(start, uint8(len(t.output.DataSince(start))+MessageTrailerSize))
	crc := CRC16(t.output.DataSince(start))
	t.output.Output([]byte{uint8(crc >> 8), uint8(crc), MessageValueSync})
}

// SendCommand encodes cmdID followed by whatever args writes.
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the power-on state, as after a USB reconnect.
func (t *Transport) Reset() {
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	if t.onReset != nil {
		t.onReset()
	}
}

// SetResetCallback is called whenever the host restarts the sequence.
func (t *Transport) SetResetCallback(fn func()) { t.onReset = fn }

// SetFlushCallback is called after each ack so it can go out before any
// response queued behind it.
func (t *Transport) SetFlushCallback(fn func()) { t.onFlush = fn }
