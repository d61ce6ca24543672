package protocol

import "testing"

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0xFFFF},
		{"check string", []byte("123456789"), 0x6F91},
		{"zero byte", []byte{0}, 0x0F87},
		{"ack header seq 0x10", []byte{5, MessageDest}, 0x9E81},
		{"ack header seq 0x11", []byte{5, MessageDest | 1}, 0x8F08},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.want {
				t.Errorf("CRC16(%v) = 0x%04X, want 0x%04X", tt.data, got, tt.want)
			}
		})
	}
}

func TestCRC16SingleBitChange(t *testing.T) {
	a := CRC16([]byte{0x01, 0x02, 0x03})
	b := CRC16([]byte{0x01, 0x02, 0x07})
	if a == b {
		t.Errorf("CRC16 did not change: 0x%04X", a)
	}
}
