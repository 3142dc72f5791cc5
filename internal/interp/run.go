package interp

import (
	"github.com/jpdube/packetdb/internal/dissect"
	"github.com/jpdube/packetdb/internal/field"
	"github.com/jpdube/packetdb/internal/pql"
	"github.com/jpdube/packetdb/internal/result"
)

// Interp evaluates one statement's filter/aggregation/group-by over a
// stream of candidate packets (§4.7). Created once per query and fed
// packets file by file from the planner.
type Interp struct {
	stmt   *pql.PqlStatement
	cursor *result.Cursor
	cache  likeCache

	aggregating bool
	grouping    bool

	bucket  []*dissect.Packet            // aggr_list set, groupby empty
	buckets map[string][]*dissect.Packet // groupby_fields set
	order   []string                     // first-seen key order, for stable output
}

// New builds an Interp for stmt, wiring its output into cursor.
func New(stmt *pql.PqlStatement, cursor *result.Cursor) *Interp {
	return &Interp{
		stmt:        stmt,
		cursor:      cursor,
		cache:       make(likeCache),
		aggregating: len(stmt.AggrList) > 0,
		grouping:    len(stmt.GroupByFields) > 0,
		buckets:     make(map[string][]*dissect.Packet),
	}
}

// Feed evaluates the filter against pkt and, on a match, routes it to the
// DISTINCT/projection path or the aggregate/group-by buffer (§4.7).
// Returns true if pkt matched.
func (in *Interp) Feed(pkt *dissect.Packet) (bool, error) {
	obj, err := Eval(in.stmt.Filter, pkt, in.cache)
	if err != nil {
		return false, nil // TypeMismatch: packet fails to match, query continues (§4.7)
	}
	if obj.Kind != Boolean || !obj.Bool() {
		// Null (absent field) or any non-boolean result means the filter
		// didn't resolve to a true predicate for this packet (§4.7).
		return false, nil
	}

	switch {
	case in.grouping:
		key := in.groupKey(pkt)
		if _, ok := in.buckets[key]; !ok {
			in.order = append(in.order, key)
		}
		in.buckets[key] = append(in.buckets[key], pkt)
	case in.aggregating:
		in.bucket = append(in.bucket, pkt)
	default:
		in.cursor.Add(pkt, in.stmt.Select)
	}
	return true, nil
}

// CountReach reports whether the query has produced enough output to stop
// feeding packets from the *current* file (consulted per packet inside a
// file's scan). Group-by must never stop mid-file on this check: a bucket
// seen for the first time only needs one more packet to reach its true
// count, and a distinct-key count that happens to hit top mid-file says
// nothing about whether those buckets are done filling (§8.4). Aggregation
// without group-by only resolves at Finish, so it never short-circuits
// early either; plain projection defers to the result cursor, where each
// match produces exactly one row.
func (in *Interp) CountReach() bool {
	switch {
	case in.grouping, in.aggregating:
		return false
	default:
		return in.cursor.CountReach()
	}
}

// FileCountReach reports whether enough output has been produced to stop
// opening further files (§4.5 step 5). Unlike CountReach, this does weigh
// group-by's distinct-key count against top -- but only between files,
// once the current file has been scanned in full, so it never truncates a
// bucket that is still being filled.
func (in *Interp) FileCountReach() bool {
	if in.grouping {
		return in.stmt.Top > 0 && len(in.buckets) >= in.stmt.Top
	}
	return in.CountReach()
}

// Finish folds any buffered aggregate/group-by state into the result
// cursor. A no-op for plain projection queries, which already wrote rows
// during Feed.
func (in *Interp) Finish() {
	switch {
	case in.grouping:
		keys := in.order
		if in.stmt.Top > 0 && len(keys) > in.stmt.Top {
			keys = keys[:in.stmt.Top] // §4.7: top bounds the number of groups emitted
		}
		for _, key := range keys {
			pkts := in.buckets[key]
			rec := result.Record{}
			rec.Fields = append(rec.Fields, groupKeyFields(in.stmt.GroupByFields, pkts[0])...)
			rec.Fields = append(rec.Fields, foldAggregates(in.stmt.AggrList, pkts)...)
			in.cursor.AddRecord(rec)
		}
	case in.aggregating:
		rec := result.Record{Fields: foldAggregates(in.stmt.AggrList, in.bucket)}
		in.cursor.AddRecord(rec)
	}
}

func (in *Interp) groupKey(pkt *dissect.Packet) string {
	var parts []byte
	for _, gf := range in.stmt.GroupByFields {
		f, ok := pkt.GetField(gf.Name)
		if !ok {
			parts = append(parts, 0)
			continue
		}
		parts = append(parts, f.Encode()...)
	}
	return string(parts)
}

func groupKeyFields(groupBy []pql.SelectField, pkt *dissect.Packet) []field.Field {
	out := make([]field.Field, 0, len(groupBy))
	for _, gf := range groupBy {
		f, ok := pkt.GetField(gf.Name)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// foldAggregates computes every requested aggregate over one packet
// bucket (§4.7 Aggregate semantics).
func foldAggregates(aggrs []pql.Aggregate, pkts []*dissect.Packet) []field.Field {
	out := make([]field.Field, 0, len(aggrs))
	for _, a := range aggrs {
		switch a.Kind {
		case pql.AggCount:
			out = append(out, field.NewInt64(a.As, int64(len(pkts))))
		case pql.AggSum:
			var sum uint64
			for _, p := range pkts {
				if f, ok := p.GetField(a.Field); ok {
					sum += f.ToU64()
				}
			}
			out = append(out, field.NewInt64(a.As, int64(sum)))
		case pql.AggAvg:
			if len(pkts) == 0 {
				out = append(out, field.NewInt64(a.As, 0)) // §4.7: empty bucket avg = 0
				continue
			}
			var sum uint64
			for _, p := range pkts {
				if f, ok := p.GetField(a.Field); ok {
					sum += f.ToU64()
				}
			}
			out = append(out, field.NewInt64(a.As, int64(sum/uint64(len(pkts)))))
		case pql.AggMin:
			min := ^uint64(0) // §4.7 monoid identity for Min
			for _, p := range pkts {
				if f, ok := p.GetField(a.Field); ok {
					if v := f.ToU64(); v < min {
						min = v
					}
				}
			}
			if len(pkts) == 0 {
				min = 0
			}
			out = append(out, field.NewInt64(a.As, int64(min)))
		case pql.AggMax:
			var max uint64
			for _, p := range pkts {
				if f, ok := p.GetField(a.Field); ok {
					if v := f.ToU64(); v > max {
						max = v
					}
				}
			}
			out = append(out, field.NewInt64(a.As, int64(max)))
		case pql.AggBandwidth:
			out = append(out, field.NewInt64(a.As, 0)) // §4.7: reserved, returns 0
		}
	}
	return out
}
