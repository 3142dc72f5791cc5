package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

type udpLayer struct {
	sport, dport uint16
	length       uint16
	checksum     uint16
}

func decodeUDP(buf []byte) (*udpLayer, int, bool) {
	if len(buf) < 8 {
		return nil, 0, false
	}
	u := &udpLayer{
		sport:    binary.BigEndian.Uint16(buf[0:2]),
		dport:    binary.BigEndian.Uint16(buf[2:4]),
		length:   binary.BigEndian.Uint16(buf[4:6]),
		checksum: binary.BigEndian.Uint16(buf[6:8]),
	}
	return u, 8, true
}

func (u *udpLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "sport":
		return field.NewInt32("udp.sport", int32(u.sport)), true
	case "dport":
		return field.NewInt32("udp.dport", int32(u.dport)), true
	case "len":
		return field.NewInt32("udp.len", int32(u.length)), true
	case "checksum":
		return field.NewInt32("udp.checksum", int32(u.checksum)), true
	default:
		return field.Field{}, false
	}
}
