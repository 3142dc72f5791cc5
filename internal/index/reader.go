package index

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/negbie/logp"

	"github.com/jpdube/packetdb/internal/config"
)

// PacketPtr names the packets to read from one capture file (§4.4, §6
// GLOSSARY): a file id plus an ascending list of byte pointers.
type PacketPtr struct {
	FileID  uint32
	Pointers []uint32
}

// IPConstraint is one (address, CIDR-mask) pair the reader prunes
// packets against (§4.4 Reader). planq translates PqlStatement.IPList
// into these; the index package has no dependency on the pql AST.
type IPConstraint struct {
	Addr uint32
	Mask uint8
}

// Predicate is the compiled form of a query's index-level constraints
// (§4.4 Reader): interval, protocol bitmap, and IP address list.
type Predicate struct {
	HasInterval bool
	FromTS      uint32
	ToTS        uint32
	SearchValue uint32
	IPList      []IPConstraint
}

// Match applies the §4.4 Reader predicate to one per-file index record.
func (p Predicate) Match(r Record) bool {
	if p.HasInterval {
		if r.Timestamp < p.FromTS || r.Timestamp > p.ToTS {
			return false
		}
	}
	if p.SearchValue != 0 && (r.ProtoBitmap&p.SearchValue) != p.SearchValue {
		return false
	}
	if len(p.IPList) > 0 {
		if !ipListMatches(p.IPList, r.IPv4Dst, r.IPv4Src) {
			return false
		}
	}
	return true
}

func ipListMatches(ipList []IPConstraint, dst, src uint32) bool {
	for _, e := range ipList {
		if cidrContains(e.Addr, e.Mask, dst) || cidrContains(e.Addr, e.Mask, src) {
			return true
		}
	}
	return false
}

// cidrContains implements §8 invariant 4: reflexive at /32, exact prefix
// comparison otherwise.
func cidrContains(network uint32, mask uint8, addr uint32) bool {
	if mask >= 32 {
		return network == addr
	}
	if mask == 0 {
		return true
	}
	shift := 32 - mask
	return (network >> shift) == (addr >> shift)
}

// Reader opens one capture file's per-file index and applies Predicate
// sequentially (§4.4 Reader).
type Reader struct {
	cfg *config.Config
}

func NewReader(cfg *config.Config) *Reader {
	return &Reader{cfg: cfg}
}

// Scan reads fileID's .pidx sequentially and returns a PacketPtr of the
// matching pointers, in file order (ascending, matching capture order).
// A misaligned record (not a multiple of RecordSize) is an
// IndexInconsistency: it's discarded and the scan continues (§7).
func (r *Reader) Scan(fileID uint32, pred Predicate) (PacketPtr, error) {
	path := filepath.Join(r.cfg.IndexPath, fmt.Sprintf("%d.pidx", fileID))
	f, err := os.Open(path)
	if err != nil {
		return PacketPtr{}, fmt.Errorf("index: open %s: %w", path, err)
	}
	defer f.Close()

	ptr := PacketPtr{FileID: fileID}
	buf := make([]byte, RecordSize)
	for {
		n, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF || (err != nil && n != RecordSize) {
			logp.Warn("%v", &IndexInconsistencyError{Path: path, Detail: "misaligned trailing bytes"})
			break
		}
		if err != nil {
			return ptr, fmt.Errorf("index: read %s: %w", path, err)
		}
		rec, ok := DecodeRecord(buf)
		if !ok {
			continue
		}
		if pred.Match(rec) {
			ptr.Pointers = append(ptr.Pointers, rec.PktPtr)
		}
	}
	return ptr, nil
}
