package index

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/negbie/logp"

	"github.com/jpdube/packetdb/internal/config"
)

// ScanMaster implements §4.4's master scan: with an interval, it reads
// master.pidx linearly and returns only file ids whose [start_ts,end_ts]
// overlaps [from,to]; without an interval, it enumerates every per-file
// index and returns file ids newest-first so TOP can short-circuit.
//
// Supplemented from original_source/database/src/dbengine.rs: if
// master.pidx cannot be opened (e.g. before create_index() has ever run),
// fall back to listing the <id>.pcap capture files in db_path
// (Builder.DiscoverFileIDs) rather than failing the query.
func ScanMaster(cfg *config.Config, hasInterval bool, fromTS, toTS uint32) ([]uint32, error) {
	path := filepath.Join(cfg.MasterIndexPath, "master.pidx")
	f, err := os.Open(path)
	if err != nil {
		logp.Warn("index: master index unavailable (%v); falling back to directory listing", err)
		return fallbackListing(cfg)
	}
	defer f.Close()

	var all []MasterRecord
	buf := make([]byte, MasterRecordSize)
	for {
		n, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF || (err != nil && n != MasterRecordSize) {
			logp.Warn("%v", &IndexInconsistencyError{Path: path, Detail: "misaligned trailing bytes"})
			break
		}
		if err != nil {
			return nil, err
		}
		rec, ok := DecodeMasterRecord(buf)
		if !ok {
			continue
		}
		all = append(all, rec)
	}

	if !hasInterval {
		sort.Slice(all, func(i, j int) bool { return all[i].FileID > all[j].FileID })
		ids := make([]uint32, len(all))
		for i, r := range all {
			ids[i] = r.FileID
		}
		return ids, nil
	}

	if fromTS > toTS {
		return nil, nil // inverted interval: empty result, no error (§8)
	}

	var ids []uint32
	for _, r := range all {
		if r.StartTS <= toTS && fromTS <= r.EndTS {
			ids = append(ids, r.FileID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids, nil
}

func fallbackListing(cfg *config.Config) ([]uint32, error) {
	b := NewBuilder(cfg)
	ids, err := b.DiscoverFileIDs()
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids, nil
}
