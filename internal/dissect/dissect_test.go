package dissect

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdube/packetdb/internal/protos"
)

func buildEthIPv4TCP(srcIP, dstIP uint32, sport, dport uint16, flags uint8) []byte {
	buf := make([]byte, 14+20+20)
	copy(buf[0:6], []byte{1, 2, 3, 4, 5, 6})
	copy(buf[6:12], []byte{6, 5, 4, 3, 2, 1})
	binary.BigEndian.PutUint16(buf[12:14], 0x0800)

	ip := buf[14:34]
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], 40)
	ip[8] = 64
	ip[9] = 6 // TCP
	binary.BigEndian.PutUint32(ip[12:16], srcIP)
	binary.BigEndian.PutUint32(ip[16:20], dstIP)

	tcp := buf[34:54]
	binary.BigEndian.PutUint16(tcp[0:2], sport)
	binary.BigEndian.PutUint16(tcp[2:4], dport)
	tcp[12] = 5 << 4
	tcp[13] = flags
	return buf
}

func header(littleEndian bool, inclen uint32) [16]byte {
	var h [16]byte
	order := binary.ByteOrder(binary.BigEndian)
	if littleEndian {
		order = binary.LittleEndian
	}
	order.PutUint32(h[0:4], 1700000000)
	order.PutUint32(h[4:8], 0)
	order.PutUint32(h[8:12], inclen)
	order.PutUint32(h[12:16], inclen)
	return h
}

func TestDissectTCP(t *testing.T) {
	raw := buildEthIPv4TCP(0xC0A80305, 0x08080808, 55555, 443, tcpSYN)
	p := NewPacket(1, 0, header(false, uint32(len(raw))), raw, false)

	require.True(t, p.HasEthernet())
	require.True(t, p.HasIPv4())
	require.True(t, p.HasTCP())
	assert.True(t, p.HasHTTPS())
	assert.False(t, p.HasUDP())

	f, ok := p.GetField("ip.src")
	require.True(t, ok)
	assert.Equal(t, "192.168.3.5", f.IPString())

	f, ok = p.GetField("tcp.dport")
	require.True(t, ok)
	assert.EqualValues(t, 443, f.Int)

	f, ok = p.GetField("tcp.flags.syn")
	require.True(t, ok)
	assert.EqualValues(t, 1, f.Int)

	wantBitmap := uint32(protos.Ethernet | protos.IPv4 | protos.Tcp | protos.Https)
	assert.Equal(t, wantBitmap, p.ProtoBitmap())
}

func TestDissectTruncated(t *testing.T) {
	raw := buildEthIPv4TCP(1, 2, 1, 2, 0)
	h := header(false, uint32(len(raw))+100) // inclen lies about length
	p := NewPacket(1, 0, h, raw, false)
	assert.False(t, p.HasEthernet())
	assert.Equal(t, uint32(0), p.ProtoBitmap())
}

func TestDissectVLAN(t *testing.T) {
	buf := make([]byte, 18+20)
	copy(buf[0:6], []byte{1, 2, 3, 4, 5, 6})
	copy(buf[6:12], []byte{6, 5, 4, 3, 2, 1})
	binary.BigEndian.PutUint16(buf[12:14], 0x8100)
	binary.BigEndian.PutUint16(buf[14:16], 42) // VID
	binary.BigEndian.PutUint16(buf[16:18], 0x0800)
	ip := buf[18:38]
	ip[0] = 0x45
	ip[9] = 1 // ICMP, but body too short; we only check eth/vlan here
	p := NewPacket(1, 0, header(false, uint32(len(buf))), buf, false)
	require.True(t, p.HasEthernet())
	f, ok := p.GetField("eth.vlan")
	require.True(t, ok)
	assert.EqualValues(t, 42, f.Int)
}

func TestDNSNameCycleGuard(t *testing.T) {
	buf := make([]byte, 14)
	// self-referential pointer at offset 0 -> infinite loop without guard
	buf[0] = 0xc0
	buf[1] = 0x00
	_, _, ok := decodeDNSName(buf, 0)
	assert.False(t, ok)
}
