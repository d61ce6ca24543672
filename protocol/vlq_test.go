package protocol

import (
	"bytes"
	"testing"
)

func TestVLQEncoding(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{96, []byte{0x80, 0x60}},
		{-1, []byte{0x7F}},
		{-32, []byte{0x60}},
		{-33, []byte{0xFF, 0x5F}},
		{0x80, []byte{0x81, 0x00}},
	}
	for _, tt := range tests {
		out := NewScratchOutput()
		EncodeVLQInt(out, tt.v)
		if got := out.Result(); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeVLQInt(%d) = % X, want % X", tt.v, got, tt.want)
		}
	}
}

func TestVLQRoundTripInt(t *testing.T) {
	values := []int32{0, 1, -1, 127, -128, 1000, -1000, 65535, -65535, 1000000, -1000000, 1 << 30, -(1 << 30)}
	for _, want := range values {
		out := NewScratchOutput()
		EncodeVLQInt(out, want)
		data := out.Result()
		got, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("DecodeVLQInt(%d): %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("round trip %d: got %d", want, got)
		}
		if len(data) != 0 {
			t.Errorf("round trip %d: %d bytes left", want, len(data))
		}
	}
}

func TestVLQUintFullRange(t *testing.T) {
	for _, want := range []uint32{0, 63, 4095, 8191, 0xFFFFFFFF} {
		out := NewScratchOutput()
		EncodeVLQUint(out, want)
		data := out.Result()
		got, err := DecodeVLQUint(&data)
		if err != nil || got != want {
			t.Errorf("round trip %d: got %d, %v", want, got, err)
		}
	}
}

func TestVLQSequence(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQUint(out, 7)
	EncodeVLQBytes(out, []byte{0xDE, 0xAD})
	EncodeVLQString(out, "3.3V")

	data := out.Result()
	id, err := DecodeVLQUint(&data)
	if err != nil || id != 7 {
		t.Fatalf("id = %d, %v", id, err)
	}
	b, err := DecodeVLQBytes(&data)
	if err != nil || !bytes.Equal(b, []byte{0xDE, 0xAD}) {
		t.Fatalf("bytes = % X, %v", b, err)
	}
	s, err := DecodeVLQString(&data)
	if err != nil || s != "3.3V" {
		t.Fatalf("string = %q, %v", s, err)
	}
	if len(data) != 0 {
		t.Errorf("%d bytes left", len(data))
	}
}

func TestVLQTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrBufferTooSmall},
		{"dangling continuation", []byte{0x80}, ErrBufferTooSmall},
		{"six byte value", []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}, ErrInvalidVLQ},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if _, err := DecodeVLQInt(&data); err != tt.want {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(data) != len(tt.data) {
				t.Errorf("input advanced on error")
			}
		})
	}
}

func TestVLQBytesShort(t *testing.T) {
	data := []byte{0x05, 0x01, 0x02}
	if _, err := DecodeVLQBytes(&data); err != ErrBufferTooSmall {
		t.Errorf("err = %v, want ErrBufferTooSmall", err)
	}
}
