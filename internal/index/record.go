// Package index implements the per-file protocol-bitmap index and the
// master time-range index of §4.4: fixed-stride binary records, written
// once per capture file and never mutated, read sequentially by the
// planner's per-file probes.
package index

import "encoding/binary"

// RecordSize is the fixed 20-byte per-file index record width (§3).
const RecordSize = 20

// MasterRecordSize is the fixed 12-byte master index record width (§3).
const MasterRecordSize = 12

// Record is one per-file index entry.
type Record struct {
	Timestamp    uint32
	PktPtr       uint32
	ProtoBitmap  uint32
	IPv4Dst      uint32
	IPv4Src      uint32
}

// Encode writes the big-endian 20-byte wire form (§3, §4.4).
func (r Record) Encode() [RecordSize]byte {
	var b [RecordSize]byte
	binary.BigEndian.PutUint32(b[0:4], r.Timestamp)
	binary.BigEndian.PutUint32(b[4:8], r.PktPtr)
	binary.BigEndian.PutUint32(b[8:12], r.ProtoBitmap)
	binary.BigEndian.PutUint32(b[12:16], r.IPv4Dst)
	binary.BigEndian.PutUint32(b[16:20], r.IPv4Src)
	return b
}

// DecodeRecord reads a 20-byte big-endian record. An undersized buffer is
// an IndexInconsistency (§7): the caller discards it and continues.
func DecodeRecord(b []byte) (Record, bool) {
	if len(b) != RecordSize {
		return Record{}, false
	}
	return Record{
		Timestamp:   binary.BigEndian.Uint32(b[0:4]),
		PktPtr:      binary.BigEndian.Uint32(b[4:8]),
		ProtoBitmap: binary.BigEndian.Uint32(b[8:12]),
		IPv4Dst:     binary.BigEndian.Uint32(b[12:16]),
		IPv4Src:     binary.BigEndian.Uint32(b[16:20]),
	}, true
}

// MasterRecord maps a capture file's time range to its file id.
type MasterRecord struct {
	StartTS uint32
	EndTS   uint32
	FileID  uint32
}

func (r MasterRecord) Encode() [MasterRecordSize]byte {
	var b [MasterRecordSize]byte
	binary.BigEndian.PutUint32(b[0:4], r.StartTS)
	binary.BigEndian.PutUint32(b[4:8], r.EndTS)
	binary.BigEndian.PutUint32(b[8:12], r.FileID)
	return b
}

func DecodeMasterRecord(b []byte) (MasterRecord, bool) {
	if len(b) != MasterRecordSize {
		return MasterRecord{}, false
	}
	return MasterRecord{
		StartTS: binary.BigEndian.Uint32(b[0:4]),
		EndTS:   binary.BigEndian.Uint32(b[4:8]),
		FileID:  binary.BigEndian.Uint32(b[8:12]),
	}, true
}
