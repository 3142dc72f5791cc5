package result

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/encoding/json"

	"github.com/jpdube/packetdb/internal/dissect"
	"github.com/jpdube/packetdb/internal/pql"
)

// Cursor holds the ordered output rows of one query (§4.8): it applies
// offset/top and, when requested, DISTINCT suppression as rows are
// appended.
type Cursor struct {
	rows     []Record
	top      int
	offset   int
	distinct bool
	seenKeys map[uint64]struct{}

	accepted int // rows actually kept, post-offset
	skipped  int // rows discarded to satisfy offset
}

// NewCursor builds a Cursor honoring top/offset/has_distinct from the
// parsed statement.
func NewCursor(top, offset int, distinct bool) *Cursor {
	c := &Cursor{top: top, offset: offset, distinct: distinct}
	if distinct {
		c.seenKeys = make(map[uint64]struct{})
	}
	return c
}

// Add projects pkt through selectFields, appends the frame.id/frame.timestamp
// synthetic fields, and inserts the resulting Record unless DISTINCT
// suppresses it as a duplicate or offset/top bounds are already satisfied
// (§4.8). Returns true if the row was kept.
func (c *Cursor) Add(pkt *dissect.Packet, selectFields []pql.SelectField) bool {
	if c.CountReach() {
		return false
	}

	var rec Record
	for _, sf := range selectFields {
		f, ok := pkt.GetField(sf.Name)
		if !ok {
			continue // §4.8: skip fields the dissector returns None for
		}
		rec.Fields = append(rec.Fields, f)
	}

	if len(rec.Fields) == 0 {
		return false // §4.8: every selected field absent, nothing to project
	}

	// DISTINCT keys off the selected projection only: frame.id is unique
	// per packet by construction, so hashing it in would defeat dedup.
	if c.distinct {
		key := canonicalKey(rec)
		if _, dup := c.seenKeys[key]; dup {
			return false
		}
		c.seenKeys[key] = struct{}{}
	}

	id, _ := pkt.GetField("frame.id")
	ts, _ := pkt.GetField("frame.timestamp")
	rec.Fields = append(rec.Fields, id, ts)

	if c.skipped < c.offset {
		c.skipped++
		return false
	}

	c.rows = append(c.rows, rec)
	c.accepted++
	return true
}

// AddRecord appends an already-projected Record (used by the aggregate /
// group-by fold, which builds its own synthetic rows rather than
// per-packet dissector projections).
func (c *Cursor) AddRecord(rec Record) {
	c.rows = append(c.rows, rec)
	c.accepted++
}

// CountReach reports whether enough rows have been produced to stop
// scanning further files (§4.5 step 5, §4.6).
func (c *Cursor) CountReach() bool {
	if c.top <= 0 {
		return false
	}
	return c.accepted >= c.top
}

// Len returns the number of rows currently held.
func (c *Cursor) Len() int { return len(c.rows) }

// Rows returns the accumulated rows in insertion order.
func (c *Cursor) Rows() []Record { return c.rows }

// canonicalKey hashes a Record's JSON-projected values into one xxhash
// digest for DISTINCT suppression (§4.8), mirroring the teacher's use of
// a fast non-cryptographic hash for a dedup key.
func canonicalKey(rec Record) uint64 {
	var b strings.Builder
	for _, f := range rec.Fields {
		b.WriteString(f.Name)
		b.WriteByte('=')
		switch v := f.JSONValue().(type) {
		case string:
			b.WriteString(v)
		case bool:
			b.WriteString(strconv.FormatBool(v))
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		default:
			fmt.Fprint(&b, v)
		}
		b.WriteByte(';')
	}
	return xxhash.Sum64String(b.String())
}

// MarshalJSON renders every row through its lossless JSON projection
// (§4.9), using segmentio/encoding/json for the same faster
// encoding/json-compatible marshal the teacher's pack favors elsewhere.
func (c *Cursor) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]interface{}, len(c.rows))
	for i, r := range c.rows {
		rows[i] = r.JSONRow()
	}
	return json.Marshal(rows)
}
