package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

type arpLayer struct {
	htype, ptype uint16
	hlen, plen   uint8
	op           uint16
	sha          uint64
	spa          uint32
	tha          uint64
	tpa          uint32
}

func decodeARP(buf []byte) (*arpLayer, int, bool) {
	if len(buf) < 8 {
		return nil, 0, false
	}
	a := &arpLayer{
		htype: binary.BigEndian.Uint16(buf[0:2]),
		ptype: binary.BigEndian.Uint16(buf[2:4]),
		hlen:  buf[4],
		plen:  buf[5],
		op:    binary.BigEndian.Uint16(buf[6:8]),
	}
	off := 8
	need := 2*int(a.hlen) + 2*int(a.plen)
	if len(buf) < off+need {
		return nil, 0, false
	}
	if a.hlen == 6 && a.plen == 4 {
		a.sha = mac48(buf[off : off+6])
		a.spa = binary.BigEndian.Uint32(buf[off+6 : off+10])
		a.tha = mac48(buf[off+10 : off+16])
		a.tpa = binary.BigEndian.Uint32(buf[off+16 : off+20])
	}
	return a, off + need, true
}

func (a *arpLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "htype":
		return field.NewInt32("arp.htype", int32(a.htype)), true
	case "ptype":
		return field.NewInt32("arp.ptype", int32(a.ptype)), true
	case "op":
		return field.NewInt32("arp.op", int32(a.op)), true
	case "sha":
		return field.NewMacAddr("arp.sha", a.sha), true
	case "spa":
		return field.NewIPv4("arp.spa", a.spa, 32), true
	case "tha":
		return field.NewMacAddr("arp.tha", a.tha), true
	case "tpa":
		return field.NewIPv4("arp.tpa", a.tpa, 32), true
	default:
		return field.Field{}, false
	}
}
