package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdube/packetdb/internal/config"
)

func writeMasterIndex(t *testing.T, dir string, recs []MasterRecord) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "master.pidx"))
	require.NoError(t, err)
	defer f.Close()
	for _, r := range recs {
		enc := r.Encode()
		_, err := f.Write(enc[:])
		require.NoError(t, err)
	}
}

func testMasterCfg(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{DBPath: dir, IndexPath: dir, MasterIndexPath: dir}
}

func TestScanMasterNoIntervalReturnsNewestFirst(t *testing.T) {
	cfg := testMasterCfg(t)
	writeMasterIndex(t, cfg.MasterIndexPath, []MasterRecord{
		{FileID: 1, StartTS: 100, EndTS: 200},
		{FileID: 3, StartTS: 300, EndTS: 400},
		{FileID: 2, StartTS: 200, EndTS: 300},
	})

	ids, err := ScanMaster(cfg, false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 2, 1}, ids)
}

func TestScanMasterIntervalFiltersOverlap(t *testing.T) {
	cfg := testMasterCfg(t)
	writeMasterIndex(t, cfg.MasterIndexPath, []MasterRecord{
		{FileID: 1, StartTS: 100, EndTS: 200},
		{FileID: 2, StartTS: 500, EndTS: 600},
	})

	ids, err := ScanMaster(cfg, true, 150, 550)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{1, 2}, ids)

	ids, err = ScanMaster(cfg, true, 700, 800)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestScanMasterInvertedIntervalIsEmpty(t *testing.T) {
	cfg := testMasterCfg(t)
	writeMasterIndex(t, cfg.MasterIndexPath, []MasterRecord{
		{FileID: 1, StartTS: 100, EndTS: 200},
	})

	ids, err := ScanMaster(cfg, true, 500, 100)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestScanMasterMissingFallsBackToDirectoryListing(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DBPath: dir, IndexPath: dir, MasterIndexPath: filepath.Join(dir, "missing")}
	for _, name := range []string{"5.pcap", "2.pcap"} {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		f.Close()
	}

	ids, err := ScanMaster(cfg, false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 2}, ids)
}
