package pcursor

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdube/packetdb/internal/config"
	"github.com/jpdube/packetdb/internal/index"
)

// writeCaptureFile builds a minimal big-endian pcap file holding the given
// raw frames, returning the absolute byte offset of each frame's record
// header (its pkt_ptr).
func writeCaptureFile(t *testing.T, path string, frames [][]byte) []uint32 {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var global [24]byte
	binary.BigEndian.PutUint32(global[0:4], 0xa1b2c3d4)
	binary.BigEndian.PutUint16(global[4:6], 2)
	binary.BigEndian.PutUint16(global[6:8], 4)
	_, err = f.Write(global[:])
	require.NoError(t, err)

	var offsets []uint32
	pos := uint32(24)
	for _, frame := range frames {
		offsets = append(offsets, pos)
		var hdr [16]byte
		binary.BigEndian.PutUint32(hdr[0:4], 1700000000)
		binary.BigEndian.PutUint32(hdr[8:12], uint32(len(frame)))
		binary.BigEndian.PutUint32(hdr[12:16], uint32(len(frame)))
		_, err = f.Write(hdr[:])
		require.NoError(t, err)
		_, err = f.Write(frame)
		require.NoError(t, err)
		pos += 16 + uint32(len(frame))
	}
	return offsets
}

func ethFrame(srcIP uint32) []byte {
	buf := make([]byte, 14+20)
	binary.BigEndian.PutUint16(buf[12:14], 0x0800)
	ip := buf[14:34]
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], 20)
	ip[9] = 1
	binary.BigEndian.PutUint32(ip[12:16], srcIP)
	return buf
}

func TestCursorReadsPointersInOrder(t *testing.T) {
	dir := t.TempDir()
	offsets := writeCaptureFile(t, filepath.Join(dir, "1.pcap"), [][]byte{
		ethFrame(0x0A000001),
		ethFrame(0x0A000002),
	})

	cfg := &config.Config{DBPath: dir}
	cur, err := Open(cfg, index.PacketPtr{FileID: 1, Pointers: offsets})
	require.NoError(t, err)
	defer cur.Close()

	assert.Equal(t, 2, cur.Remaining())

	pkt1, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	f, ok := pkt1.GetField("ip.src")
	require.True(t, ok)
	assert.EqualValues(t, 0x0A000001, f.ToU32())

	pkt2, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	f, ok = pkt2.GetField("ip.src")
	require.True(t, ok)
	assert.EqualValues(t, 0x0A000002, f.ToU32())

	_, ok, err = cur.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, cur.Remaining())
}

func TestCursorSkipsBadPointer(t *testing.T) {
	dir := t.TempDir()
	offsets := writeCaptureFile(t, filepath.Join(dir, "1.pcap"), [][]byte{
		ethFrame(0x0A000001),
	})
	badOffset := offsets[0] + 10000

	cfg := &config.Config{DBPath: dir}
	cur, err := Open(cfg, index.PacketPtr{FileID: 1, Pointers: []uint32{badOffset, offsets[0]}})
	require.NoError(t, err)
	defer cur.Close()

	pkt, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	f, _ := pkt.GetField("ip.src")
	assert.EqualValues(t, 0x0A000001, f.ToU32())
}
