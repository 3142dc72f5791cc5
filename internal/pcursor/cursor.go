// Package pcursor implements the packet cursor of §4.6: given a capture
// file id and an ascending list of byte pointers (pkt_ptr values from the
// index), it reads exactly those records out of the capture file via
// random-access seeks, never scanning bytes the index didn't name.
package pcursor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jpdube/packetdb/internal/config"
	"github.com/jpdube/packetdb/internal/dissect"
	"github.com/jpdube/packetdb/internal/index"
	"github.com/jpdube/packetdb/internal/pcap"
)

// Cursor reads candidate packets for one capture file, named by its
// ascending PacketPtr.Pointers list.
type Cursor struct {
	cfg          *config.Config
	f            *os.File
	littleEndian bool
	fileID       uint32
	pointers     []uint32
	pos          int
}

// Open positions a Cursor over ptr.FileID, ready to read ptr.Pointers in
// order.
func Open(cfg *config.Config, ptr index.PacketPtr) (*Cursor, error) {
	path := filepath.Join(cfg.DBPath, fmt.Sprintf("%d.pcap", ptr.FileID))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcursor: open %s: %w", path, err)
	}
	var hdr [4]byte
	if _, err := f.Read(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("pcursor: read global header %s: %w", path, err)
	}
	littleEndian := hdr[0] == 0xd4
	return &Cursor{
		cfg:          cfg,
		f:            f,
		littleEndian: littleEndian,
		fileID:       ptr.FileID,
		pointers:     ptr.Pointers,
	}, nil
}

func (c *Cursor) Close() error { return c.f.Close() }

// Next reads the packet at the cursor's current pointer and advances.
// Returns (nil, false, nil) once every pointer has been consumed. A
// pointer whose capture record can no longer be read (truncated file,
// bad offset) is skipped with no error, consistent with §7's treatment
// of stale index entries as IndexInconsistency rather than a fatal fault.
func (c *Cursor) Next() (*dissect.Packet, bool, error) {
	for c.pos < len(c.pointers) {
		off := c.pointers[c.pos]
		c.pos++
		rec, err := pcap.ReadAt(c.f, c.littleEndian, int64(off))
		if err != nil {
			continue
		}
		return dissect.NewPacket(c.fileID, rec.Offset, rec.Header, rec.Raw, c.littleEndian), true, nil
	}
	return nil, false, nil
}

// NextChunk coalesces up to n consecutive Next() calls, stopping early at
// exhaustion (§4.6 next_chunk).
func (c *Cursor) NextChunk(n int) ([]*dissect.Packet, error) {
	out := make([]*dissect.Packet, 0, n)
	for i := 0; i < n; i++ {
		pkt, ok, err := c.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, pkt)
	}
	return out, nil
}

// Remaining reports how many pointers have not yet been read.
func (c *Cursor) Remaining() int { return len(c.pointers) - c.pos }
