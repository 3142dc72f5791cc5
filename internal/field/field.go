// Package field implements the unified Field value used throughout the
// query core: protocol field values, literal values produced by the PQL
// parser, and the on-the-wire encoding shared by the per-file index and
// any persisted projection.
package field

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Kind tags the variant held by a Field.
type Kind uint16

const (
	KindBool Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindIPv4
	KindIPv6
	KindMacAddr
	KindTimestamp
	KindTimeValue
	KindString
	KindByteArray
	KindFieldArray
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindIPv4:
		return "ipv4"
	case KindIPv6:
		return "ipv6"
	case KindMacAddr:
		return "mac"
	case KindTimestamp:
		return "timestamp"
	case KindTimeValue:
		return "timevalue"
	case KindString:
		return "string"
	case KindByteArray:
		return "bytearray"
	case KindFieldArray:
		return "fieldarray"
	default:
		return "unknown"
	}
}

// Field is a tagged value with a dotted name, e.g. "ip.src".
//
// Only the members relevant to Kind are populated; Int holds every
// integer-width variant (Int8..Int64, Timestamp, TimeValue) sign-extended
// into int64, as well as the IPv4 address and the 48-bit MacAddr value,
// Mask holds the IPv4/IPv6 prefix length, Bytes holds IPv6/ByteArray/String
// payload bytes, and Array holds FieldArray members.
type Field struct {
	Name  string
	Kind  Kind
	Int   int64
	Mask  uint8
	Bytes []byte
	Str   string
	Array []Field
}

// NewBool constructs a Bool field.
func NewBool(name string, v bool) Field {
	i := int64(0)
	if v {
		i = 1
	}
	return Field{Name: name, Kind: KindBool, Int: i}
}

func NewInt8(name string, v int8) Field   { return Field{Name: name, Kind: KindInt8, Int: int64(v)} }
func NewInt16(name string, v int16) Field { return Field{Name: name, Kind: KindInt16, Int: int64(v)} }
func NewInt32(name string, v int32) Field { return Field{Name: name, Kind: KindInt32, Int: int64(v)} }
func NewInt64(name string, v int64) Field { return Field{Name: name, Kind: KindInt64, Int: v} }

// NewIPv4 constructs an IPv4 field; addr is host-order u32, mask is the
// CIDR prefix length (0-32).
func NewIPv4(name string, addr uint32, mask uint8) Field {
	return Field{Name: name, Kind: KindIPv4, Int: int64(addr), Mask: mask}
}

// NewIPv6 constructs an IPv6 field from its 16 raw address bytes; mask is
// the CIDR prefix length (0-128).
func NewIPv6(name string, addr []byte, mask uint8) Field {
	return Field{Name: name, Kind: KindIPv6, Bytes: append([]byte(nil), addr...), Mask: mask}
}

// NewMacAddr constructs a MAC address field from a 6-byte big-endian value
// packed into the low 48 bits of v.
func NewMacAddr(name string, v uint64) Field {
	return Field{Name: name, Kind: KindMacAddr, Int: int64(v & 0xFFFFFFFFFFFF)}
}

// NewTimestamp constructs a Timestamp field (seconds since epoch).
func NewTimestamp(name string, sec uint32) Field {
	return Field{Name: name, Kind: KindTimestamp, Int: int64(sec)}
}

func NewTimeValue(name string, v uint32) Field {
	return Field{Name: name, Kind: KindTimeValue, Int: int64(v)}
}

func NewString(name, v string) Field {
	return Field{Name: name, Kind: KindString, Str: v, Bytes: []byte(v)}
}

func NewByteArray(name string, v []byte) Field {
	return Field{Name: name, Kind: KindByteArray, Bytes: v}
}

func NewFieldArray(name string, v []Field) Field {
	return Field{Name: name, Kind: KindFieldArray, Array: v}
}

// GetTypeLen returns the payload width in bytes used by the storage codec,
// as called for in §3/§4.9. FieldArray has no fixed width.
func (f Field) GetTypeLen() int {
	switch f.Kind {
	case KindBool, KindInt8:
		return 1
	case KindInt16:
		return 2
	case KindInt32, KindIPv4, KindTimestamp, KindTimeValue:
		return 4
	case KindInt64:
		return 8
	case KindMacAddr:
		return 6
	case KindIPv6:
		return 16
	case KindString, KindByteArray:
		return len(f.Bytes)
	default:
		return 0
	}
}

// ToU64 widens the field to an unsigned 64-bit accessor with zero
// extension; incompatible variants return 0 (§4.9).
func (f Field) ToU64() uint64 {
	switch f.Kind {
	case KindInt8:
		return uint64(uint8(f.Int))
	case KindInt16:
		return uint64(uint16(f.Int))
	case KindInt32, KindIPv4, KindTimestamp, KindTimeValue:
		return uint64(uint32(f.Int))
	case KindBool, KindInt64, KindMacAddr:
		return uint64(f.Int)
	default:
		return 0
	}
}

func (f Field) ToU32() uint32  { return uint32(f.ToU64()) }
func (f Field) ToU16() uint16  { return uint16(f.ToU64()) }
func (f Field) ToU8() uint8    { return uint8(f.ToU64()) }
func (f Field) ToUsize() uint  { return uint(f.ToU64()) }

// IPString renders an IPv4 Field as dotted-quad, empty string otherwise.
func (f Field) IPString() string {
	if f.Kind != KindIPv4 {
		return ""
	}
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, uint32(f.Int))
	return ip.String()
}

// MacString renders a MacAddr Field as colon-separated hex.
func (f Field) MacString() string {
	if f.Kind != KindMacAddr {
		return ""
	}
	v := uint64(f.Int)
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		(v>>40)&0xff, (v>>32)&0xff, (v>>24)&0xff, (v>>16)&0xff, (v>>8)&0xff, v&0xff)
}

// TimeString renders a Timestamp Field as "YYYY-MM-DD HH:MM:SS" UTC.
func (f Field) TimeString() string {
	if f.Kind != KindTimestamp {
		return ""
	}
	return time.Unix(f.Int, 0).UTC().Format("2006-01-02 15:04:05")
}

// JSONValue renders the field the way the Result Cursor's lossless JSON
// projection wants it (§3, §4.9): IPv4/MAC as strings, Timestamp as the
// UTC datetime string, everything else as its natural Go value.
func (f Field) JSONValue() interface{} {
	switch f.Kind {
	case KindBool:
		return f.Int != 0
	case KindIPv4:
		return f.IPString()
	case KindMacAddr:
		return f.MacString()
	case KindTimestamp:
		return f.TimeString()
	case KindString:
		return f.Str
	case KindByteArray, KindIPv6:
		return f.Bytes
	case KindFieldArray:
		out := make([]interface{}, len(f.Array))
		for i, sub := range f.Array {
			out[i] = sub.JSONValue()
		}
		return out
	default:
		return f.Int
	}
}

// Encode writes the field's value payload (no name, no tag) in the codec
// of §4.9: fixed-width big-endian for scalar kinds, "length u16 BE | bytes"
// for String/ByteArray.
func (f Field) Encode() []byte {
	switch f.Kind {
	case KindBool, KindInt8:
		return []byte{byte(f.Int)}
	case KindInt16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(f.Int))
		return b
	case KindInt32, KindIPv4, KindTimestamp, KindTimeValue:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(f.Int))
		return b
	case KindInt64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(f.Int))
		return b
	case KindMacAddr:
		b := make([]byte, 6)
		v := uint64(f.Int)
		for i := 0; i < 6; i++ {
			b[5-i] = byte(v >> (8 * i))
		}
		return b
	case KindIPv6:
		b := make([]byte, 16)
		copy(b, f.Bytes)
		return b
	case KindString, KindByteArray:
		out := make([]byte, 2+len(f.Bytes))
		binary.BigEndian.PutUint16(out, uint16(len(f.Bytes)))
		copy(out[2:], f.Bytes)
		return out
	default:
		return nil
	}
}

// Decode is the inverse of Encode for a known (name, kind, mask). It
// returns the number of bytes consumed and an error if buf is short.
func Decode(name string, kind Kind, mask uint8, buf []byte) (Field, int, error) {
	need := func(n int) error {
		if len(buf) < n {
			return fmt.Errorf("field: short buffer decoding %s: need %d have %d", name, n, len(buf))
		}
		return nil
	}
	switch kind {
	case KindBool:
		if err := need(1); err != nil {
			return Field{}, 0, err
		}
		return NewBool(name, buf[0] != 0), 1, nil
	case KindInt8:
		if err := need(1); err != nil {
			return Field{}, 0, err
		}
		return NewInt8(name, int8(buf[0])), 1, nil
	case KindInt16:
		if err := need(2); err != nil {
			return Field{}, 0, err
		}
		return NewInt16(name, int16(binary.BigEndian.Uint16(buf))), 2, nil
	case KindInt32:
		if err := need(4); err != nil {
			return Field{}, 0, err
		}
		return NewInt32(name, int32(binary.BigEndian.Uint32(buf))), 4, nil
	case KindIPv4:
		if err := need(4); err != nil {
			return Field{}, 0, err
		}
		return NewIPv4(name, binary.BigEndian.Uint32(buf), mask), 4, nil
	case KindTimestamp:
		if err := need(4); err != nil {
			return Field{}, 0, err
		}
		return NewTimestamp(name, binary.BigEndian.Uint32(buf)), 4, nil
	case KindTimeValue:
		if err := need(4); err != nil {
			return Field{}, 0, err
		}
		return NewTimeValue(name, binary.BigEndian.Uint32(buf)), 4, nil
	case KindInt64:
		if err := need(8); err != nil {
			return Field{}, 0, err
		}
		return NewInt64(name, int64(binary.BigEndian.Uint64(buf))), 8, nil
	case KindMacAddr:
		if err := need(6); err != nil {
			return Field{}, 0, err
		}
		var v uint64
		for i := 0; i < 6; i++ {
			v = v<<8 | uint64(buf[i])
		}
		return NewMacAddr(name, v), 6, nil
	case KindString, KindByteArray:
		if err := need(2); err != nil {
			return Field{}, 0, err
		}
		n := int(binary.BigEndian.Uint16(buf))
		if err := need(2 + n); err != nil {
			return Field{}, 0, err
		}
		payload := append([]byte(nil), buf[2:2+n]...)
		if kind == KindString {
			return NewString(name, string(payload)), 2 + n, nil
		}
		return NewByteArray(name, payload), 2 + n, nil
	case KindIPv6:
		if err := need(16); err != nil {
			return Field{}, 0, err
		}
		return NewIPv6(name, buf[:16], mask), 16, nil
	case KindFieldArray:
		// FieldArray has no fixed-width wire encoding (Encode doesn't emit
		// one either); a nested array would need its own recursive schema,
		// not a bare (kind, mask) pair.
		return Field{}, 0, fmt.Errorf("field: %s is a FieldArray, not independently decodable", name)
	default:
		return Field{}, 0, fmt.Errorf("field: unsupported kind %s for %s", kind, name)
	}
}

// EncodeSchema writes a field-definition (schema) header per §4.9:
// type_tag u16 BE | type_len u16 BE | name_len u16 BE | name_bytes.
func EncodeSchema(name string, kind Kind, typeLen int) []byte {
	out := make([]byte, 6+len(name))
	binary.BigEndian.PutUint16(out[0:2], uint16(kind))
	binary.BigEndian.PutUint16(out[2:4], uint16(typeLen))
	binary.BigEndian.PutUint16(out[4:6], uint16(len(name)))
	copy(out[6:], name)
	return out
}

// DecodeSchema reads back a schema header, returning the field name, kind,
// declared type length, and bytes consumed.
func DecodeSchema(buf []byte) (name string, kind Kind, typeLen int, n int, err error) {
	if len(buf) < 6 {
		return "", 0, 0, 0, fmt.Errorf("field: short schema buffer")
	}
	kind = Kind(binary.BigEndian.Uint16(buf[0:2]))
	typeLen = int(binary.BigEndian.Uint16(buf[2:4]))
	nameLen := int(binary.BigEndian.Uint16(buf[4:6]))
	if len(buf) < 6+nameLen {
		return "", 0, 0, 0, fmt.Errorf("field: short schema name buffer")
	}
	name = string(buf[6 : 6+nameLen])
	return name, kind, typeLen, 6 + nameLen, nil
}
