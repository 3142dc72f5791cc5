package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

type ntpLayer struct {
	leap, version, mode uint8
	stratum             uint8
	poll                int8
	precision           int8
	rootDelay           uint32
	rootDispersion      uint32
	refID               uint32
	refTimestamp        uint64
	origTimestamp       uint64
	recvTimestamp       uint64
	transTimestamp      uint64
}

func decodeNTP(buf []byte) (*ntpLayer, bool) {
	if len(buf) < 48 {
		return nil, false
	}
	b0 := buf[0]
	n := &ntpLayer{
		leap:           b0 >> 6,
		version:        (b0 >> 3) & 0x07,
		mode:           b0 & 0x07,
		stratum:        buf[1],
		poll:           int8(buf[2]),
		precision:      int8(buf[3]),
		rootDelay:      binary.BigEndian.Uint32(buf[4:8]),
		rootDispersion: binary.BigEndian.Uint32(buf[8:12]),
		refID:          binary.BigEndian.Uint32(buf[12:16]),
		refTimestamp:   binary.BigEndian.Uint64(buf[16:24]),
		origTimestamp:  binary.BigEndian.Uint64(buf[24:32]),
		recvTimestamp:  binary.BigEndian.Uint64(buf[32:40]),
		transTimestamp: binary.BigEndian.Uint64(buf[40:48]),
	}
	return n, true
}

func (n *ntpLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "leap":
		return field.NewInt32("ntp.leap", int32(n.leap)), true
	case "version":
		return field.NewInt32("ntp.version", int32(n.version)), true
	case "mode":
		return field.NewInt32("ntp.mode", int32(n.mode)), true
	case "stratum":
		return field.NewInt32("ntp.stratum", int32(n.stratum)), true
	case "poll":
		return field.NewInt32("ntp.poll", int32(n.poll)), true
	case "precision":
		return field.NewInt32("ntp.precision", int32(n.precision)), true
	case "root_delay":
		return field.NewInt64("ntp.root_delay", int64(n.rootDelay)), true
	case "root_dispersion":
		return field.NewInt64("ntp.root_dispersion", int64(n.rootDispersion)), true
	case "ref_id":
		return field.NewInt64("ntp.ref_id", int64(n.refID)), true
	case "ref_timestamp":
		return field.NewTimeValue("ntp.ref_timestamp", uint32(n.refTimestamp>>32)), true
	case "orig_timestamp":
		return field.NewTimeValue("ntp.orig_timestamp", uint32(n.origTimestamp>>32)), true
	case "recv_timestamp":
		return field.NewTimeValue("ntp.recv_timestamp", uint32(n.recvTimestamp>>32)), true
	case "trans_timestamp":
		return field.NewTimeValue("ntp.trans_timestamp", uint32(n.transTimestamp>>32)), true
	default:
		return field.Field{}, false
	}
}
