// Package planq implements the execution planner of §4.5: it parses a PQL
// query (or takes one from the plan cache), resolves candidate capture
// files via the master index, and for each file drives the per-file index
// probe, packet cursor, and interpreter in turn -- stopping as soon as
// enough output rows have been produced.
package planq

import (
	"errors"
	"fmt"
	"time"

	"github.com/negbie/logp"

	"github.com/jpdube/packetdb/internal/config"
	"github.com/jpdube/packetdb/internal/index"
	"github.com/jpdube/packetdb/internal/interp"
	"github.com/jpdube/packetdb/internal/pcursor"
	"github.com/jpdube/packetdb/internal/pql"
	"github.com/jpdube/packetdb/internal/result"
)

// Timing is one named stage's wall-clock cost, reported back to the
// caller for the query's execution profile (§4.5).
type Timing struct {
	Description string
	Start       time.Time
	Delta       time.Duration
}

// Result is the planner's output: the parsed statement, the collected
// rows, and the timing trace.
type Result struct {
	Statement *pql.PqlStatement
	Cursor    *result.Cursor
	Timings   []Timing
}

// Planner owns the plan cache and drives one query end to end.
type Planner struct {
	cfg   *config.Config
	cache *PlanCache
}

func NewPlanner(cfg *config.Config) *Planner {
	return &Planner{cfg: cfg, cache: NewPlanCache()}
}

// Run executes queryText per §4.5's five steps: parse, enumerate
// candidate files newest-first, and for each file probe the index, stream
// candidate packets through the interpreter, and stop once enough rows
// have been produced.
func (p *Planner) Run(queryText string) (*Result, error) {
	var timings []Timing

	parseStart := time.Now()
	stmt, ok := p.cache.Get(queryText)
	if !ok {
		parsed, errs := pql.Parse(queryText)
		if len(errs) > 0 {
			all := make([]error, len(errs))
			for i, e := range errs {
				all[i] = e
			}
			return nil, fmt.Errorf("planq: parse error: %w", errors.Join(all...))
		}
		stmt = parsed
		p.cache.Put(queryText, stmt)
	}
	timings = append(timings, Timing{Description: "parse", Start: parseStart, Delta: time.Since(parseStart)})

	scanStart := time.Now()
	fileIDs, err := index.ScanMaster(p.cfg, stmt.HasInterval, uint32(stmt.IntervalFrom), uint32(stmt.IntervalTo))
	if err != nil {
		return nil, fmt.Errorf("planq: master scan: %w", err)
	}
	timings = append(timings, Timing{Description: "master_scan", Start: scanStart, Delta: time.Since(scanStart)})

	pred := predicateFor(stmt)
	reader := index.NewReader(p.cfg)
	cursor := result.NewCursor(stmt.Top, stmt.Offset, stmt.HasDistinct)
	interpreter := interp.New(stmt, cursor)

	produced := 0
	for _, fileID := range fileIDs {
		want := stmt.Top + stmt.Offset
		if want > 0 && produced >= want {
			break // §4.5 step 3: remaining <= 0
		}

		fileStart := time.Now()
		ptr, err := reader.Scan(fileID, pred)
		if err != nil {
			logp.Warn("planq: file %d: %v", fileID, err)
			continue
		}
		if len(ptr.Pointers) == 0 {
			continue
		}

		n, err := p.feedFile(interpreter, ptr)
		if err != nil {
			logp.Warn("planq: file %d: %v", fileID, err)
		}
		produced += n
		timings = append(timings, Timing{
			Description: fmt.Sprintf("file %d", fileID),
			Start:       fileStart,
			Delta:       time.Since(fileStart),
		})

		if interpreter.FileCountReach() {
			break // §4.5 step 5
		}
	}

	finishStart := time.Now()
	interpreter.Finish()
	timings = append(timings, Timing{Description: "aggregation", Start: finishStart, Delta: time.Since(finishStart)})

	return &Result{Statement: stmt, Cursor: cursor, Timings: timings}, nil
}

// feedFile opens ptr's capture file and streams every candidate packet
// through interpreter, returning how many matched.
func (p *Planner) feedFile(interpreter *interp.Interp, ptr index.PacketPtr) (int, error) {
	cur, err := pcursor.Open(p.cfg, ptr)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	matched := 0
	for {
		pkt, ok, err := cur.Next()
		if err != nil {
			return matched, err
		}
		if !ok {
			return matched, nil
		}
		if m, _ := interpreter.Feed(pkt); m {
			matched++
		}
		if interpreter.CountReach() {
			return matched, nil
		}
	}
}

// predicateFor translates a parsed statement's index-level constraints
// into index.Predicate, flattening the ip.src/ip.dst-keyed IPList into one
// list since a per-file record only carries one dst/src pair to test
// against (§4.3, §4.4).
func predicateFor(stmt *pql.PqlStatement) index.Predicate {
	pred := index.Predicate{
		HasInterval: stmt.HasInterval,
		FromTS:      uint32(stmt.IntervalFrom),
		ToTS:        uint32(stmt.IntervalTo),
		SearchValue: stmt.SearchType,
	}
	for _, entries := range stmt.IPList {
		for _, e := range entries {
			pred.IPList = append(pred.IPList, index.IPConstraint{Addr: e.Addr, Mask: e.Mask})
		}
	}
	return pred
}
