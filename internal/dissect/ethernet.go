package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

type ethernetLayer struct {
	dst, src  uint64
	ethertype uint16
	vlan      uint16
}

// decodeEthernet reads 14 bytes (18 if VLAN-tagged) from the front of buf
// and returns the layer and header length (§4.1 step 3).
func decodeEthernet(buf []byte) (*ethernetLayer, int, bool) {
	if len(buf) < 14 {
		return nil, 0, false
	}
	e := &ethernetLayer{
		dst: mac48(buf[0:6]),
		src: mac48(buf[6:12]),
		vlan: 1,
	}
	et := binary.BigEndian.Uint16(buf[12:14])
	if et == 0x8100 {
		if len(buf) < 18 {
			return nil, 0, false
		}
		tci := binary.BigEndian.Uint16(buf[14:16])
		e.vlan = tci & 0x0FFF
		e.ethertype = binary.BigEndian.Uint16(buf[16:18])
		return e, 18, true
	}
	e.ethertype = et
	return e, 14, true
}

func mac48(b []byte) uint64 {
	var v uint64
	for i := 0; i < 6; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (e *ethernetLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "src":
		return field.NewMacAddr("eth.src", e.src), true
	case "dst":
		return field.NewMacAddr("eth.dst", e.dst), true
	case "type":
		return field.NewInt32("eth.type", int32(e.ethertype)), true
	case "vlan":
		return field.NewInt32("eth.vlan", int32(e.vlan)), true
	default:
		return field.Field{}, false
	}
}
