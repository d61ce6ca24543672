package probe

import (
	"fmt"
	"strings"

	"probeplat/protocol"
)

// field is one name=%x parameter of a message.
type field struct {
	Name  string
	Bytes bool
}

// messageFormat is a parsed dictionary signature such as
// "spi_xfer bus=%c data=%*s".
type messageFormat struct {
	ID     uint16
	Name   string
	Fields []field
}

func parseFormat(sig string, id int) (*messageFormat, error) {
	parts := strings.Fields(sig)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty signature for id %d", id)
	}
	m := &messageFormat{ID: uint16(id), Name: parts[0]}
	for _, p := range parts[1:] {
		name, verb, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("%s: malformed parameter %q", m.Name, p)
		}
		switch verb {
		case "%c", "%u", "%i", "%hu", "%hi":
			m.Fields = append(m.Fields, field{Name: name})
		case "%*s", "%.*s":
			m.Fields = append(m.Fields, field{Name: name, Bytes: true})
		default:
			return nil, fmt.Errorf("%s: unsupported type %q", m.Name, verb)
		}
	}
	return m, nil
}

// encode writes args in field order. Integers accept any Go integer type
// or bool; byte fields accept []byte or string.
func (m *messageFormat) encode(out protocol.OutputBuffer, args []interface{}) error {
	if len(args) != len(m.Fields) {
		return fmt.Errorf("%s takes %d arguments, got %d", m.Name, len(m.Fields), len(args))
	}
	for i, f := range m.Fields {
		if f.Bytes {
			switch v := args[i].(type) {
			case []byte:
				protocol.EncodeVLQBytes(out, v)
			case string:
				protocol.EncodeVLQString(out, v)
			default:
				return fmt.Errorf("%s: %s wants bytes, got %T", m.Name, f.Name, args[i])
			}
			continue
		}
		v, err := toUint(args[i])
		if err != nil {
			return fmt.Errorf("%s: %s: %w", m.Name, f.Name, err)
		}
		protocol.EncodeVLQUint(out, v)
	}
	return nil
}

func toUint(a interface{}) (uint32, error) {
	switch v := a.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return uint32(v), nil
	case int32:
		return uint32(v), nil
	case uint:
		return uint32(v), nil
	case uint8:
		return uint32(v), nil
	case uint16:
		return uint32(v), nil
	case uint32:
		return v, nil
	}
	return 0, fmt.Errorf("want an integer, got %T", a)
}

// decode reads a response payload that follows the message id.
func (m *messageFormat) decode(payload []byte) (*Response, error) {
	r := &Response{Name: m.Name, Values: map[string]uint32{}, Data: map[string][]byte{}}
	for _, f := range m.Fields {
		if f.Bytes {
			b, err := protocol.DecodeVLQBytes(&payload)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", m.Name, f.Name, err)
			}
			r.Data[f.Name] = append([]byte(nil), b...)
			continue
		}
		v, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.Name, f.Name, err)
		}
		r.Values[f.Name] = v
	}
	return r, nil
}

// Response is one decoded firmware response.
type Response struct {
	Name   string
	Values map[string]uint32
	Data   map[string][]byte
}

func (r *Response) Uint(name string) uint32   { return r.Values[name] }
func (r *Response) Bool(name string) bool     { return r.Values[name] != 0 }
func (r *Response) Bytes(name string) []byte  { return r.Data[name] }
func (r *Response) String(name string) string { return string(r.Data[name]) }

// describe renders r the way the dictionary signature reads.
func (m *messageFormat) describe(r *Response) string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	for _, f := range m.Fields {
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		if f.Bytes {
			fmt.Fprintf(&sb, "%q", r.Data[f.Name])
		} else {
			fmt.Fprintf(&sb, "%d", r.Values[f.Name])
		}
	}
	return sb.String()
}
