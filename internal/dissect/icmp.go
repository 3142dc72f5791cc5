package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

type icmpLayer struct {
	typ, code uint8
	checksum  uint16
	id, seq   uint16
}

func decodeICMP(buf []byte) (*icmpLayer, int, bool) {
	if len(buf) < 4 {
		return nil, 0, false
	}
	i := &icmpLayer{
		typ:      buf[0],
		code:     buf[1],
		checksum: binary.BigEndian.Uint16(buf[2:4]),
	}
	end := 4
	if len(buf) >= 8 {
		i.id = binary.BigEndian.Uint16(buf[4:6])
		i.seq = binary.BigEndian.Uint16(buf[6:8])
		end = 8
	}
	return i, end, true
}

func (i *icmpLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "type":
		return field.NewInt32("icmp.type", int32(i.typ)), true
	case "code":
		return field.NewInt32("icmp.code", int32(i.code)), true
	case "checksum":
		return field.NewInt32("icmp.checksum", int32(i.checksum)), true
	case "id":
		return field.NewInt32("icmp.id", int32(i.id)), true
	case "seq":
		return field.NewInt32("icmp.seq", int32(i.seq)), true
	default:
		return field.Field{}, false
	}
}
