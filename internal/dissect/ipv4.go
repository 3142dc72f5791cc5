package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

type ipv4Layer struct {
	headerLen   int
	tos         uint8
	totalLen    uint16
	id          uint16
	flags       uint8
	fragOffset  uint16
	ttl         uint8
	protocol    uint8
	checksum    uint16
	src, dst    uint32
}

// decodeIPv4 computes the header length from the low nibble of byte 0
// (x4), per §4.1 step 5.
func decodeIPv4(buf []byte) (*ipv4Layer, int, bool) {
	if len(buf) < 20 {
		return nil, 0, false
	}
	ihl := int(buf[0]&0x0F) * 4
	if ihl < 20 || len(buf) < ihl {
		return nil, 0, false
	}
	flagsFrag := binary.BigEndian.Uint16(buf[6:8])
	ip := &ipv4Layer{
		headerLen:  ihl,
		tos:        buf[1],
		totalLen:   binary.BigEndian.Uint16(buf[2:4]),
		id:         binary.BigEndian.Uint16(buf[4:6]),
		flags:      uint8(flagsFrag >> 13),
		fragOffset: flagsFrag & 0x1FFF,
		ttl:        buf[8],
		protocol:   buf[9],
		checksum:   binary.BigEndian.Uint16(buf[10:12]),
		src:        binary.BigEndian.Uint32(buf[12:16]),
		dst:        binary.BigEndian.Uint32(buf[16:20]),
	}
	return ip, ihl, true
}

func (ip *ipv4Layer) GetField(name string) (field.Field, bool) {
	switch name {
	case "src":
		return field.NewIPv4("ip.src", ip.src, 32), true
	case "dst":
		return field.NewIPv4("ip.dst", ip.dst, 32), true
	case "proto":
		return field.NewInt32("ip.proto", int32(ip.protocol)), true
	case "ttl":
		return field.NewInt32("ip.ttl", int32(ip.ttl)), true
	case "tos":
		return field.NewInt32("ip.tos", int32(ip.tos)), true
	case "len":
		return field.NewInt32("ip.len", int32(ip.totalLen)), true
	case "id":
		return field.NewInt32("ip.id", int32(ip.id)), true
	case "flags":
		return field.NewInt32("ip.flags", int32(ip.flags)), true
	case "frag_offset":
		return field.NewInt32("ip.frag_offset", int32(ip.fragOffset)), true
	case "checksum":
		return field.NewInt32("ip.checksum", int32(ip.checksum)), true
	case "hlen":
		return field.NewInt32("ip.hlen", int32(ip.headerLen)), true
	default:
		return field.Field{}, false
	}
}
