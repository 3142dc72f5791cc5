package pql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanAndCombineIPv4(t *testing.T) {
	toks, errs := Scan("ip.src == 192.168.3.0/24")
	require.Empty(t, errs)
	combined := Combine(toks)
	var kinds []Kind
	for _, tk := range combined {
		kinds = append(kinds, tk.Kind)
	}
	assert.Equal(t, []Kind{DottedIdent, EqEq, IPv4Lit, Slash, IntLit, EOF}, kinds)
}

func TestParseTopProtocolFilter(t *testing.T) {
	stmt, errs := Parse(`select ip.src, ip.dst from s1 where tcp.dport == HTTPS top 3`)
	require.Empty(t, errs)
	assert.Equal(t, []string{"s1"}, stmt.From)
	assert.Equal(t, 3, stmt.Top)
	assert.Len(t, stmt.Select, 2)

	bin, ok := stmt.Filter.(BinOpExpr)
	require.True(t, ok)
	assert.Equal(t, OpEqual, bin.Op)
	lbl := bin.LHS.(LabelExpr)
	assert.Equal(t, "tcp.dport", lbl.Name)
	lit := bin.RHS.(IntegerExpr)
	assert.EqualValues(t, 443, lit.Value)
}

func TestParseCIDRCapturesIPList(t *testing.T) {
	stmt, errs := Parse(`select ip.src from s1 where ip.src == 192.168.3.0/24 top 10`)
	require.Empty(t, errs)
	require.Contains(t, stmt.IPList, "ip.src")
	require.Len(t, stmt.IPList["ip.src"], 1)
	assert.EqualValues(t, 24, stmt.IPList["ip.src"][0].Mask)
}

func TestParseInterval(t *testing.T) {
	stmt, errs := Parse(`select frame.timestamp from s1 interval 2024-02-01 00:00:00 to 2024-02-01 01:00:00 top 100`)
	require.Empty(t, errs)
	require.True(t, stmt.HasInterval)
	assert.Equal(t, stmt.IntervalFrom+3600, stmt.IntervalTo)
}

func TestParseGroupByAggregate(t *testing.T) {
	stmt, errs := Parse(`select ip.src, count() as n from s1 group by ip.src top 2`)
	require.Empty(t, errs)
	require.Len(t, stmt.AggrList, 1)
	assert.Equal(t, AggCount, stmt.AggrList[0].Kind)
	assert.Equal(t, "n", stmt.AggrList[0].As)
	require.Len(t, stmt.GroupByFields, 1)
	assert.Equal(t, "ip.src", stmt.GroupByFields[0].Name)
}

func TestParseDistinct(t *testing.T) {
	stmt, errs := Parse(`select distinct tcp.dport from s1 top 4`)
	require.Empty(t, errs)
	assert.True(t, stmt.HasDistinct)
}

func TestParseErrorsAccumulate(t *testing.T) {
	_, errs := Parse(`select from where top`)
	assert.NotEmpty(t, errs)
}

func TestParseTypeMismatchStillParses(t *testing.T) {
	stmt, errs := Parse(`select ip.src from s1 where ip.src == "notanip"`)
	require.Empty(t, errs)
	bin := stmt.Filter.(BinOpExpr)
	_, isStr := bin.RHS.(StringExpr)
	assert.True(t, isStr)
}

func TestParseNowMinus(t *testing.T) {
	nowFn = func() int64 { return 2000000000 }
	defer func() { nowFn = func() int64 { return 0 } }()
	stmt, errs := Parse(`select ip.src from s1 interval now - 1 h to now top 1`)
	require.Empty(t, errs)
	assert.Equal(t, int64(2000000000-3600), stmt.IntervalFrom)
	assert.Equal(t, int64(2000000000), stmt.IntervalTo)
}
