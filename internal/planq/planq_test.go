package planq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdube/packetdb/internal/config"
	"github.com/jpdube/packetdb/internal/index"
	"github.com/jpdube/packetdb/internal/pql"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	for _, sub := range []string{"db", "idx", "master"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}
	return &config.Config{
		DBPath:          filepath.Join(dir, "db"),
		IndexPath:       filepath.Join(dir, "idx"),
		MasterIndexPath: filepath.Join(dir, "master"),
		BlockSize:       4,
	}
}

func TestPredicateForFlattensIPList(t *testing.T) {
	stmt, errs := pql.Parse(`select ip.src from packet where ip.src == 10.0.0.1/32 top 3`)
	require.Empty(t, errs)
	pred := predicateFor(stmt)
	require.Len(t, pred.IPList, 1)
	assert.Equal(t, uint8(32), pred.IPList[0].Mask)
}

func TestPlannerRunNoMasterIndexFallsBackEmpty(t *testing.T) {
	cfg := testConfig(t)
	p := NewPlanner(cfg)
	res, err := p.Run(`select frame.id from packet top 5`)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cursor.Len())
	assert.NotEmpty(t, res.Timings)
}

func TestPlanCacheRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	p := NewPlanner(cfg)
	_, err := p.Run(`select ip.src from packet where ip.src == 10.0.0.1/32 top 3`)
	require.NoError(t, err)

	cached, ok := p.cache.Get(`select ip.src from packet where ip.src == 10.0.0.1/32 top 3`)
	require.True(t, ok)
	assert.Equal(t, 3, cached.Top)
}

func TestPredicateForIPConstraint(t *testing.T) {
	pred := index.Predicate{IPList: []index.IPConstraint{{Addr: 0x0a000001, Mask: 32}}}
	rec := index.Record{IPv4Src: 0x0a000001}
	assert.True(t, pred.Match(rec))
}
