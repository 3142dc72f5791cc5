package result

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdube/packetdb/internal/dissect"
	"github.com/jpdube/packetdb/internal/pql"
)

func buildTCPPacket(srcIP uint32) *dissect.Packet {
	buf := make([]byte, 14+20+20)
	copy(buf[0:6], []byte{1, 2, 3, 4, 5, 6})
	copy(buf[6:12], []byte{6, 5, 4, 3, 2, 1})
	binary.BigEndian.PutUint16(buf[12:14], 0x0800)
	ip := buf[14:34]
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], 40)
	ip[8] = 64
	ip[9] = 6
	binary.BigEndian.PutUint32(ip[12:16], srcIP)
	binary.BigEndian.PutUint32(ip[16:20], 0x0A000002)
	tcp := buf[34:54]
	tcp[12] = 5 << 4

	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1700000000)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(buf)))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(len(buf)))
	return dissect.NewPacket(7, 128, hdr, buf, false)
}

func buildUDPPacket(srcIP uint32) *dissect.Packet {
	buf := make([]byte, 14+20+8)
	copy(buf[0:6], []byte{1, 2, 3, 4, 5, 6})
	copy(buf[6:12], []byte{6, 5, 4, 3, 2, 1})
	binary.BigEndian.PutUint16(buf[12:14], 0x0800)
	ip := buf[14:34]
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], 28)
	ip[8] = 64
	ip[9] = 17
	binary.BigEndian.PutUint32(ip[12:16], srcIP)
	binary.BigEndian.PutUint32(ip[16:20], 0x0A000002)

	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1700000000)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(buf)))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(len(buf)))
	return dissect.NewPacket(7, 128, hdr, buf, false)
}

func TestAddSkipsAbsentFieldsAndAppendsFrameFields(t *testing.T) {
	c := NewCursor(10, 0, false)
	pkt := buildTCPPacket(0x0A000001)
	ok := c.Add(pkt, []pql.SelectField{{Name: "ip.src"}, {Name: "dns.qname"}})
	require.True(t, ok)
	rec := c.Rows()[0]
	_, hasDNS := rec.Get("dns.qname")
	assert.False(t, hasDNS)
	_, hasID := rec.Get("frame.id")
	assert.True(t, hasID)
}

func TestAddSkipsRowWithNoSelectedFields(t *testing.T) {
	c := NewCursor(10, 0, false)
	pkt := buildTCPPacket(0x0A000001)
	ok := c.Add(pkt, []pql.SelectField{{Name: "dns.qname"}})
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestDistinctSkipsPacketsMissingTheProjectedField(t *testing.T) {
	// §8.5: select distinct tcp.dport over {443,53,443,22,80,443,22} where
	// the 53 packet is UDP (no tcp.dport) must drop that packet entirely,
	// not emit it as a spurious empty-key row.
	c := NewCursor(10, 0, true)
	tcpPkt := buildTCPPacket(0x0A000001)
	udpPkt := buildUDPPacket(0x0A000001)

	assert.True(t, c.Add(tcpPkt, []pql.SelectField{{Name: "tcp.dport"}}))
	assert.False(t, c.Add(udpPkt, []pql.SelectField{{Name: "tcp.dport"}}))
	assert.False(t, c.Add(tcpPkt, []pql.SelectField{{Name: "tcp.dport"}})) // duplicate of the first

	assert.Equal(t, 1, c.Len())
}

func TestOffsetDiscardsFirstRows(t *testing.T) {
	c := NewCursor(10, 2, false)
	for i := 0; i < 3; i++ {
		c.Add(buildTCPPacket(uint32(0x0A000001+i)), []pql.SelectField{{Name: "ip.src"}})
	}
	assert.Equal(t, 1, c.Len())
}

func TestDistinctSuppressesDuplicateRows(t *testing.T) {
	c := NewCursor(10, 0, true)
	pkt := buildTCPPacket(0x0A000001)
	c.Add(pkt, []pql.SelectField{{Name: "ip.src"}})
	c.Add(pkt, []pql.SelectField{{Name: "ip.src"}})
	assert.Equal(t, 1, c.Len())
}

func TestCountReachStopsAtTop(t *testing.T) {
	c := NewCursor(2, 0, false)
	for i := 0; i < 5; i++ {
		c.Add(buildTCPPacket(uint32(0x0A000001+i)), []pql.SelectField{{Name: "ip.src"}})
	}
	assert.Equal(t, 2, c.Len())
}
