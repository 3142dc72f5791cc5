package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

type tcpLayer struct {
	sport, dport uint16
	seq, ack     uint32
	dataOffset   int
	flags        uint8
	window       uint16
	checksum     uint16
	urgent       uint16
}

const (
	tcpFIN = 1 << 0
	tcpSYN = 1 << 1
	tcpRST = 1 << 2
	tcpPSH = 1 << 3
	tcpACK = 1 << 4
	tcpURG = 1 << 5
	tcpECE = 1 << 6
	tcpCWR = 1 << 7
)

func decodeTCP(buf []byte) (*tcpLayer, int, bool) {
	if len(buf) < 20 {
		return nil, 0, false
	}
	dataOff := int(buf[12]>>4) * 4
	if dataOff < 20 || len(buf) < dataOff {
		return nil, 0, false
	}
	t := &tcpLayer{
		sport:      binary.BigEndian.Uint16(buf[0:2]),
		dport:      binary.BigEndian.Uint16(buf[2:4]),
		seq:        binary.BigEndian.Uint32(buf[4:8]),
		ack:        binary.BigEndian.Uint32(buf[8:12]),
		dataOffset: dataOff,
		flags:      buf[13],
		window:     binary.BigEndian.Uint16(buf[14:16]),
		checksum:   binary.BigEndian.Uint16(buf[16:18]),
		urgent:     binary.BigEndian.Uint16(buf[18:20]),
	}
	return t, dataOff, true
}

func (t *tcpLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "sport":
		return field.NewInt32("tcp.sport", int32(t.sport)), true
	case "dport":
		return field.NewInt32("tcp.dport", int32(t.dport)), true
	case "seq":
		return field.NewInt64("tcp.seq", int64(t.seq)), true
	case "ack":
		return field.NewInt64("tcp.ack", int64(t.ack)), true
	case "flags":
		return field.NewInt32("tcp.flags", int32(t.flags)), true
	case "flags.syn":
		return field.NewBool("tcp.flags.syn", t.flags&tcpSYN != 0), true
	case "flags.ack":
		return field.NewBool("tcp.flags.ack", t.flags&tcpACK != 0), true
	case "flags.fin":
		return field.NewBool("tcp.flags.fin", t.flags&tcpFIN != 0), true
	case "flags.rst":
		return field.NewBool("tcp.flags.rst", t.flags&tcpRST != 0), true
	case "flags.psh":
		return field.NewBool("tcp.flags.psh", t.flags&tcpPSH != 0), true
	case "flags.urg":
		return field.NewBool("tcp.flags.urg", t.flags&tcpURG != 0), true
	case "window":
		return field.NewInt32("tcp.window", int32(t.window)), true
	case "checksum":
		return field.NewInt32("tcp.checksum", int32(t.checksum)), true
	default:
		return field.Field{}, false
	}
}
