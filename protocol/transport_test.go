package protocol

import (
	"bytes"
	"errors"
	"testing"
)

type firmwareRig struct {
	out   *ScratchOutput
	tr    *Transport
	calls []uint16
	args  []uint32
	fail  error
}

func newFirmwareRig() *firmwareRig {
	r := &firmwareRig{out: NewScratchOutput()}
	r.tr = NewTransport(r.out, func(id uint16, data *[]byte) error {
		r.calls = append(r.calls, id)
		if id == 9 {
			v, err := DecodeVLQUint(data)
			if err != nil {
				return err
			}
			r.args = append(r.args, v)
		}
		return r.fail
	})
	return r
}

func commandBlock(t *testing.T, seq uint8, ids ...uint32) []byte {
	t.Helper()
	s := NewScratchOutput()
	for _, id := range ids {
		EncodeVLQUint(s, id)
	}
	b, err := AppendBlock(nil, seq, s.Result())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func ackBlock(seq uint8) []byte {
	crc := CRC16([]byte{MessageLengthMin, seq})
	return []byte{MessageLengthMin, seq, uint8(crc >> 8), uint8(crc), MessageValueSync}
}

func TestAppendBlock(t *testing.T) {
	b, err := AppendBlock(nil, MessageDest, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{5, 0x10, 0x9E, 0x81, 0x7E}; !bytes.Equal(b, want) {
		t.Errorf("empty block = % X, want % X", b, want)
	}
	if _, err := AppendBlock(nil, MessageDest, make([]byte, MessagePayloadMax+1)); !errors.Is(err, ErrBlockTooLong) {
		t.Errorf("oversized payload err = %v", err)
	}
	if _, err := AppendBlock(nil, MessageDest, make([]byte, MessagePayloadMax)); err != nil {
		t.Errorf("full payload err = %v", err)
	}
}

func TestTransportDispatchAndAck(t *testing.T) {
	r := newFirmwareRig()
	in := NewSliceInputBuffer(commandBlock(t, 0x10, 1, 9, 300))
	r.tr.Receive(in)

	if len(r.calls) != 2 || r.calls[0] != 1 || r.calls[1] != 9 {
		t.Fatalf("calls = %v", r.calls)
	}
	if len(r.args) != 1 || r.args[0] != 300 {
		t.Errorf("args = %v", r.args)
	}
	if in.Available() != 0 {
		t.Errorf("%d bytes left unconsumed", in.Available())
	}
	if got := r.out.Result(); !bytes.Equal(got, ackBlock(0x11)) {
		t.Errorf("ack = % X, want % X", got, ackBlock(0x11))
	}
}

func TestTransportPartialBlock(t *testing.T) {
	r := newFirmwareRig()
	block := commandBlock(t, 0x10, 1)
	in := NewFifoBuffer(64)
	in.Write(block[:3])
	r.tr.Receive(in)
	if len(r.calls) != 0 || in.Available() != 3 {
		t.Fatalf("partial block consumed: calls %v, left %d", r.calls, in.Available())
	}
	in.Write(block[3:])
	r.tr.Receive(in)
	if len(r.calls) != 1 {
		t.Errorf("calls = %v after completing block", r.calls)
	}
}

func TestTransportStaleSequenceIsNacked(t *testing.T) {
	r := newFirmwareRig()
	r.tr.Receive(NewSliceInputBuffer(commandBlock(t, 0x10, 1)))
	r.out.Reset()

	r.tr.Receive(NewSliceInputBuffer(commandBlock(t, 0x15, 1)))
	if len(r.calls) != 1 {
		t.Errorf("out-of-order block was dispatched")
	}
	if got := r.out.Result(); !bytes.Equal(got, ackBlock(0x11)) {
		t.Errorf("nak = % X, want % X", got, ackBlock(0x11))
	}
}

func TestTransportHostRestart(t *testing.T) {
	r := newFirmwareRig()
	resets := 0
	r.tr.SetResetCallback(func() { resets++ })
	r.tr.Receive(NewSliceInputBuffer(commandBlock(t, 0x10, 1)))
	r.tr.Receive(NewSliceInputBuffer(commandBlock(t, 0x10, 1)))
	if resets != 1 {
		t.Errorf("resets = %d, want 1", resets)
	}
	if len(r.calls) != 2 {
		t.Errorf("restart block not dispatched: %v", r.calls)
	}
}

func TestTransportResyncAfterCorruption(t *testing.T) {
	r := newFirmwareRig()
	bad := commandBlock(t, 0x10, 1)
	bad[2] ^= 0xFF
	stream := append(bad, commandBlock(t, 0x10, 1)...)
	r.tr.Receive(NewSliceInputBuffer(stream))

	if len(r.calls) != 1 {
		t.Fatalf("calls = %v, want the good block only", r.calls)
	}
	want := append(ackBlock(0x10), ackBlock(0x11)...)
	if got := r.out.Result(); !bytes.Equal(got, want) {
		t.Errorf("output = % X, want % X", got, want)
	}
}

func TestTransportHandlerErrorStopsBlock(t *testing.T) {
	r := newFirmwareRig()
	r.fail = errors.New("boom")
	r.tr.Receive(NewSliceInputBuffer(commandBlock(t, 0x10, 1, 2)))
	if len(r.calls) != 1 {
		t.Errorf("calls = %v, want dispatch to stop at the first error", r.calls)
	}
	r.fail = nil
	r.out.Reset()
	r.tr.Receive(NewSliceInputBuffer(commandBlock(t, 0x11, 2)))
	if len(r.calls) != 2 {
		t.Errorf("link did not stay in sync after a handler error")
	}
}

func TestTransportResponseCarriesNextSequence(t *testing.T) {
	r := newFirmwareRig()
	r.tr.Receive(NewSliceInputBuffer(commandBlock(t, 0x10, 1)))
	r.out.Reset()

	r.tr.SendCommand(4, func(out OutputBuffer) { EncodeVLQUint(out, 42) })
	got := r.out.Result()
	want, _ := AppendBlock(nil, 0x11, []byte{4, 42})
	if !bytes.Equal(got, want) {
		t.Errorf("response = % X, want % X", got, want)
	}
}

func TestTransportFlushAfterAck(t *testing.T) {
	r := newFirmwareRig()
	flushed := 0
	r.tr.SetFlushCallback(func() { flushed++ })
	r.tr.Receive(NewSliceInputBuffer(append(commandBlock(t, 0x10, 1), commandBlock(t, 0x11, 1)...)))
	if flushed != 2 {
		t.Errorf("flushed = %d, want 2", flushed)
	}
}
