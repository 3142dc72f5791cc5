package interp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdube/packetdb/internal/dissect"
	"github.com/jpdube/packetdb/internal/pql"
	"github.com/jpdube/packetdb/internal/result"
)

func buildTCPPacket(srcIP, dstIP uint32, sport, dport uint16) *dissect.Packet {
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
	binary.BigEndian.PutUint32(ip[16:20], dstIP)

	tcp := buf[34:54]
	binary.BigEndian.PutUint16(tcp[0:2], sport)
	binary.BigEndian.PutUint16(tcp[2:4], dport)
	tcp[12] = 5 << 4

	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], 1700000000)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(buf)))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(len(buf)))
	return dissect.NewPacket(1, 0, hdr, buf, false)
}

func mustParse(t *testing.T, src string) *pql.PqlStatement {
	t.Helper()
	stmt, errs := pql.Parse(src)
	require.Empty(t, errs)
	return stmt
}

func TestFeedFiltersByIPEquality(t *testing.T) {
	stmt := mustParse(t, `select ip.src from packet where ip.src == 192.168.3.0/24 top 10`)
	cur := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	in := New(stmt, cur)

	matchPkt := buildTCPPacket(0xC0A80305, 0x0A000001, 1111, 80)  // 192.168.3.5
	missPkt := buildTCPPacket(0x0A000001, 0xC0A80305, 1111, 80)   // src 10.0.0.1

	m1, err := in.Feed(matchPkt)
	require.NoError(t, err)
	assert.True(t, m1)

	m2, err := in.Feed(missPkt)
	require.NoError(t, err)
	assert.False(t, m2)

	assert.Equal(t, 1, cur.Len())
}

func TestFeedTypeMismatchDoesNotMatch(t *testing.T) {
	stmt := mustParse(t, `select ip.src from packet where ip.src == "notanip" top 10`)
	cur := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	in := New(stmt, cur)

	pkt := buildTCPPacket(0xC0A80305, 0x0A000001, 1111, 80)
	matched, err := in.Feed(pkt)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, 0, cur.Len())
}

func TestAggregateCountAndSum(t *testing.T) {
	stmt := mustParse(t, `select count() as pkt_count, sum(ip.src) as src_sum from packet top 10`)
	cur := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	in := New(stmt, cur)

	for i := 0; i < 3; i++ {
		_, err := in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 80))
		require.NoError(t, err)
	}
	in.Finish()

	require.Equal(t, 1, cur.Len())
	row := cur.Rows()[0]
	count, ok := row.Get("pkt_count")
	require.True(t, ok)
	assert.EqualValues(t, 3, count.Int)
}

func TestAggregateAvgEmptyBucketIsZero(t *testing.T) {
	stmt := mustParse(t, `select avg(ip.src) as avg_src from packet top 10`)
	cur := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	in := New(stmt, cur)
	in.Finish()

	require.Equal(t, 1, cur.Len())
	avg, ok := cur.Rows()[0].Get("avg_src")
	require.True(t, ok)
	assert.EqualValues(t, 0, avg.Int)
}

func TestGroupByCountReachUsesDistinctKeys(t *testing.T) {
	stmt := mustParse(t, `select tcp.dport from packet group by tcp.dport top 2`)
	cur := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	in := New(stmt, cur)

	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 80))
	assert.False(t, in.FileCountReach())
	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 443))
	assert.True(t, in.FileCountReach())
}

// TestGroupByCountReachNeverStopsMidFile verifies the per-packet CountReach
// used inside a file's scan ignores bucket count entirely, so a file that
// would otherwise get cut short once top distinct keys appear keeps
// filling every bucket to its true size (§8.4).
func TestGroupByCountReachNeverStopsMidFile(t *testing.T) {
	stmt := mustParse(t, `select tcp.dport from packet group by tcp.dport top 2`)
	cur := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	in := New(stmt, cur)

	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 80))
	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 80))
	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 443))
	assert.False(t, in.CountReach())
	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 443))
	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 990))
	_, _ = in.Feed(buildTCPPacket(0x0A000001, 0x0A000002, 1111, 443))
	assert.False(t, in.CountReach())

	in.Finish()
	require.Equal(t, 2, cur.Len())
	row0 := cur.Rows()[0]
	dport, ok := row0.Get("tcp.dport")
	require.True(t, ok)
	assert.EqualValues(t, 80, dport.Int)
}

// TestGroupByTopKeepsFullBucketCounts is the exact scenario of a group-by
// query whose top is reached mid-stream: packets {A,A,B,A,C,B} grouped by
// ip.src with top 2 must yield {A:3},{B:2}, not counts frozen at whatever
// each bucket held the moment the 2nd distinct key appeared.
func TestGroupByTopKeepsFullBucketCounts(t *testing.T) {
	stmt := mustParse(t, `select ip.src, count() as pkt_count from packet group by ip.src top 2`)
	cur := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	in := New(stmt, cur)

	a := uint32(0x0A000001)
	b := uint32(0x0A000002)
	c := uint32(0x0A000003)
	for _, src := range []uint32{a, a, b, a, c, b} {
		_, err := in.Feed(buildTCPPacket(src, 0x0A0000FE, 1111, 80))
		require.NoError(t, err)
	}
	in.Finish()

	require.Equal(t, 2, cur.Len())
	row0 := cur.Rows()[0]
	src0, ok := row0.Get("ip.src")
	require.True(t, ok)
	assert.EqualValues(t, a, src0.Int)
	count0, ok := row0.Get("pkt_count")
	require.True(t, ok)
	assert.EqualValues(t, 3, count0.Int)

	row1 := cur.Rows()[1]
	src1, ok := row1.Get("ip.src")
	require.True(t, ok)
	assert.EqualValues(t, b, src1.Int)
	count1, ok := row1.Get("pkt_count")
	require.True(t, ok)
	assert.EqualValues(t, 2, count1.Int)
}
