package index

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/negbie/logp"
	"github.com/valyala/bytebufferpool"

	"github.com/jpdube/packetdb/internal/config"
	"github.com/jpdube/packetdb/internal/dissect"
	"github.com/jpdube/packetdb/internal/pcap"
)

// Builder streams a capture file through the dissector and writes its
// per-file index (§4.4 Writer). Adapted from the teacher's Decoder: the
// same shape (atomic counters, a bytebufferpool-backed hot path, logp
// logging of progress) now drives offline index construction over a
// stored capture file instead of live gopacket decode of a network tap.
type Builder struct {
	cfg *config.Config

	recordCount uint64
	fileCount   uint64
}

func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

var captureFileRE = regexp.MustCompile(`^(\d+)\.pcap$`)

// DiscoverFileIDs lists the capture files present in cfg.DBPath (§6).
func (b *Builder) DiscoverFileIDs() ([]uint32, error) {
	entries, err := os.ReadDir(b.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("index: read db_path %s: %w", b.cfg.DBPath, err)
	}
	var ids []uint32
	for _, e := range entries {
		m := captureFileRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(n))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// BuildFile streams one capture file through the dissector, writing its
// 20-byte-record .pidx file, and returns the MasterRecord summarizing its
// time range (§4.4 Writer).
func (b *Builder) BuildFile(fileID uint32) (MasterRecord, error) {
	capPath := filepath.Join(b.cfg.DBPath, fmt.Sprintf("%d.pcap", fileID))
	r, err := pcap.Open(capPath)
	if err != nil {
		return MasterRecord{}, err
	}
	defer r.Close()

	idxPath := filepath.Join(b.cfg.IndexPath, fmt.Sprintf("%d.pidx", fileID))
	out, err := os.Create(idxPath)
	if err != nil {
		return MasterRecord{}, fmt.Errorf("index: create %s: %w", idxPath, err)
	}
	defer out.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var startTS, endTS uint32
	first := true
	var n uint64
	for {
		rec, err := r.Next()
		if err != nil {
			break // io.EOF or a truncated tail: stop cleanly (§8)
		}
		pkt := dissect.NewPacket(fileID, rec.Offset, rec.Header, rec.Raw, r.LittleEndian())
		ts := pkt.TsSec()
		if first {
			startTS, endTS = ts, ts
			first = false
		} else {
			if ts < startTS {
				startTS = ts
			}
			if ts > endTS {
				endTS = ts
			}
		}

		var dst, src uint32
		if f, ok := pkt.GetField("ip.dst"); ok {
			dst = f.ToU32()
		}
		if f, ok := pkt.GetField("ip.src"); ok {
			src = f.ToU32()
		}

		idxRec := Record{
			Timestamp:   ts,
			PktPtr:      rec.Offset,
			ProtoBitmap: pkt.ProtoBitmap(),
			IPv4Dst:     dst,
			IPv4Src:     src,
		}
		enc := idxRec.Encode()
		buf.Reset()
		buf.Write(enc[:])
		if _, err := out.Write(buf.Bytes()); err != nil {
			return MasterRecord{}, fmt.Errorf("index: write %s: %w", idxPath, err)
		}
		n++
	}
	atomic.AddUint64(&b.recordCount, n)
	atomic.AddUint64(&b.fileCount, 1)
	logp.Debug("index", "built %s: %d records, span [%d,%d]", idxPath, n, startTS, endTS)
	if first {
		// Empty capture file: empty .pidx, omit the master record (§8).
		return MasterRecord{}, nil
	}
	return MasterRecord{StartTS: startTS, EndTS: endTS, FileID: fileID}, nil
}

// BuildAll indexes every capture file in cfg.DBPath, one goroutine per
// file bounded by cfg.BlockSize (§4.4, §6 block_size), and appends the
// resulting MasterRecords to master.pidx via a single sequential reducer
// -- the only serialization point in an otherwise embarrassingly
// parallel build.
func (b *Builder) BuildAll() error {
	ids, err := b.DiscoverFileIDs()
	if err != nil {
		return err
	}
	block := int(b.cfg.BlockSize)
	if block <= 0 {
		block = 1
	}

	masterPath := filepath.Join(b.cfg.MasterIndexPath, "master.pidx")
	mf, err := os.OpenFile(masterPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("index: open %s: %w", masterPath, err)
	}
	defer mf.Close()

	sem := make(chan struct{}, block)
	results := make(chan MasterRecord, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			rec, err := b.BuildFile(id)
			if err != nil {
				logp.Warn("index: build file %d: %v", id, err)
				return
			}
			results <- rec
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for rec := range results {
		if rec.FileID == 0 && rec.StartTS == 0 && rec.EndTS == 0 {
			continue // empty capture file: no master record (§8)
		}
		enc := rec.Encode()
		if _, err := mf.Write(enc[:]); err != nil {
			return fmt.Errorf("index: append master record: %w", err)
		}
	}
	logp.Info("index: built %d files, %d records", atomic.LoadUint64(&b.fileCount), atomic.LoadUint64(&b.recordCount))
	return nil
}
