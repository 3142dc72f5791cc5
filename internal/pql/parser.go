package pql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jpdube/packetdb/internal/protos"
)

// protoConstValue maps a protocol-constant literal (§4.2, §4.3) to the
// integer it evaluates to in an expression (well-known port or protocol
// number), independent of the search_type bit it also sets.
var protoConstValue = map[string]int64{
	"ETH_IPV4":    0x0800,
	"IPV4_TCP":    6,
	"IPV4_UDP":    17,
	"IPV4_ICMP":   1,
	"HTTPS":       443,
	"HTTP":        80,
	"DNS":         53,
	"DHCP_SERVER": 67,
	"DHCP_CLIENT": 68,
	"SSH":         22,
	"RDP":         3389,
	"TELNET":      23,
}

// Parse lexes, combines, and parses src into a PqlStatement, collecting
// every error encountered (§4.3, §7): the parser never stops at the
// first error.
func Parse(src string) (*PqlStatement, []ParseError) {
	toks, lexErrs := Scan(src)
	toks = Combine(toks)
	p := &Parser{toks: toks, stmt: NewStatement()}
	p.errs = append(p.errs, lexErrs...)
	p.parseSelect()
	return p.stmt, p.errs
}

// Parser is a recursive-descent parser over the post-pass token stream.
type Parser struct {
	toks []Token
	pos  int
	stmt *PqlStatement
	errs []ParseError
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(off int) Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return Token{Kind: EOF}
	}
	return p.toks[i]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(t Token, format string, args ...interface{}) {
	p.errs = append(p.errs, ParseError{Message: fmt.Sprintf(format, args...), Line: t.Line, Col: t.Col})
}

// expect consumes a token of kind k, recording an error (but still
// advancing, to guarantee forward progress for error recovery) if the
// current token doesn't match.
func (p *Parser) expect(k Kind, what string) Token {
	t := p.cur()
	if t.Kind != k {
		p.errorf(t, "expected %s, got %s %q", what, t.Kind, t.Value)
		p.advance()
		return t
	}
	return p.advance()
}

func (p *Parser) parseSelect() {
	p.expect(Select, "SELECT")

	if p.cur().Kind == Distinct {
		p.stmt.HasDistinct = true
		p.advance()
	}

	p.stmt.Select = p.parseFieldList(false)

	p.expect(From, "FROM")
	p.stmt.From = p.parseIdentList()

	if p.cur().Kind == Where {
		p.advance()
		p.stmt.Filter = p.parseOrExpr()
	}

	if p.cur().Kind == Interval {
		p.advance()
		from := p.parseTsExpr()
		p.expect(To, "TO")
		to := p.parseTsExpr()
		p.stmt.HasInterval = true
		p.stmt.IntervalFrom = from
		p.stmt.IntervalTo = to
	}

	if p.cur().Kind == GroupByTok {
		p.advance()
		p.stmt.GroupByFields = p.parseFieldList(true)
	}

	if p.cur().Kind == Top {
		p.advance()
		p.stmt.Top = p.parseIntLiteral()
	}

	if p.cur().Kind == Offset {
		p.advance()
		p.stmt.Offset = p.parseIntLiteral()
	}
}

func (p *Parser) parseIntLiteral() int {
	t := p.expect(IntLit, "integer")
	n, _ := strconv.Atoi(t.Value)
	return n
}

func (p *Parser) parseIdentList() []string {
	var out []string
	out = append(out, p.parseIdentName())
	for p.cur().Kind == Comma {
		p.advance()
		out = append(out, p.parseIdentName())
	}
	return out
}

func (p *Parser) parseIdentName() string {
	t := p.cur()
	if t.Kind == Ident || t.Kind == DottedIdent {
		p.advance()
		return t.Value
	}
	p.errorf(t, "expected identifier, got %s %q", t.Kind, t.Value)
	p.advance()
	return t.Value
}

// parseFieldList parses field_list: IDENT | AGGREGATE [AS IDENT] (§4.3).
// groupBy marks a group-by list; it is parsed by the same rules as the
// select list, so an aggregate written there is added to AggrList too.
func (p *Parser) parseFieldList(groupBy bool) []SelectField {
	var out []SelectField
	id := 0
	parseOne := func() {
		t := p.cur()
		switch t.Kind {
		case CountCall:
			p.advance()
			alias := "count"
			if p.cur().Kind == AsTok {
				alias = p.cur().Extra
				p.advance()
			}
			p.stmt.AggrList = append(p.stmt.AggrList, Aggregate{Kind: AggCount, As: alias})
		case AggregateTok:
			p.advance()
			alias := t.Value + "_" + t.Extra
			if p.cur().Kind == AsTok {
				alias = p.cur().Extra
				p.advance()
			}
			p.stmt.AggrList = append(p.stmt.AggrList, Aggregate{Kind: aggKindOf(t.Value), Field: t.Extra, As: alias})
		case Ident, DottedIdent:
			p.advance()
			out = append(out, SelectField{Name: t.Value, ID: id})
			id++
		default:
			p.errorf(t, "expected a field, aggregate, or COUNT(), got %s %q", t.Kind, t.Value)
			p.advance()
		}
	}
	parseOne()
	for p.cur().Kind == Comma {
		p.advance()
		parseOne()
	}
	_ = groupBy
	return out
}

func aggKindOf(name string) AggregateKind {
	switch name {
	case "sum":
		return AggSum
	case "min":
		return AggMin
	case "max":
		return AggMax
	case "avg":
		return AggAvg
	case "bandwidth":
		return AggBandwidth
	default:
		return AggCount
	}
}

// parseOrExpr / parseAndExpr / parseRelExpr implement the precedence
// ladder of §4.3: OR lowest, then AND, then a single optional comparison
// at the relational level (rel_expr has at most one operator: the
// grammar is not left-recursive at comparison level).
func (p *Parser) parseOrExpr() Expression {
	lhs := p.parseAndExpr()
	for p.cur().Kind == Or {
		p.advance()
		rhs := p.parseAndExpr()
		lhs = BinOpExpr{Op: OpLOr, LHS: lhs, RHS: rhs}
	}
	return lhs
}

func (p *Parser) parseAndExpr() Expression {
	lhs := p.parseRelExpr()
	for p.cur().Kind == And {
		p.advance()
		rhs := p.parseRelExpr()
		lhs = BinOpExpr{Op: OpLAnd, LHS: lhs, RHS: rhs}
	}
	return lhs
}

func (p *Parser) parseRelExpr() Expression {
	lhs := p.parseFactor()
	op, ok := relOp(p.cur().Kind)
	if !ok {
		return lhs
	}
	p.advance()
	rhs := p.parseFactor()
	expr := BinOpExpr{Op: op, LHS: lhs, RHS: rhs}
	p.captureIPConstraint(expr)
	return expr
}

func relOp(k Kind) (Operator, bool) {
	switch k {
	case EqEq:
		return OpEqual, true
	case NotEq:
		return OpNE, true
	case Lt:
		return OpLT, true
	case LtEq:
		return OpLE, true
	case Gt:
		return OpGT, true
	case GtEq:
		return OpGE, true
	case In:
		return OpIn, true
	case NotInTok:
		return OpNotIn, true
	case Like:
		return OpLike, true
	default:
		return 0, false
	}
}

// captureIPConstraint implements §4.3: an ip.src/ip.dst identifier bound
// in == with an IPv4 literal is captured into ip_list for index-level
// address pruning.
func (p *Parser) captureIPConstraint(expr BinOpExpr) {
	if expr.Op != OpEqual {
		return
	}
	lbl, ok := expr.LHS.(LabelExpr)
	if !ok {
		return
	}
	if lbl.Name != "ip.src" && lbl.Name != "ip.dst" {
		return
	}
	ip, ok := expr.RHS.(IPv4Expr)
	if !ok {
		return
	}
	p.stmt.IPList[lbl.Name] = append(p.stmt.IPList[lbl.Name], IPEntry{Addr: ip.Addr, Mask: ip.Mask})
}

// parseFactor implements:
//   factor := literal | IDENT | IDENT "[" INT ":" INT "]"
//           | "[" literal ("," literal)* "]"
//           | "(" or_expr ")"
func (p *Parser) parseFactor() Expression {
	t := p.cur()
	switch t.Kind {
	case LParen:
		p.advance()
		inner := p.parseOrExpr()
		p.expect(RParen, ")")
		return GroupExpr{Inner: inner}
	case LBracket:
		return p.parseArrayLiteral()
	case Ident, DottedIdent:
		p.advance()
		p.addLayerSearchTag(t.Value)
		if p.cur().Kind == LBracket {
			return p.parseLabelByte(t.Value)
		}
		return LabelExpr{Name: t.Value}
	default:
		return p.parseLiteral()
	}
}

func (p *Parser) addLayerSearchTag(dotted string) {
	i := strings.IndexByte(dotted, '.')
	if i < 0 {
		return
	}
	if tag, ok := protos.LayerPrefixTag[dotted[:i]]; ok {
		p.stmt.AddSearchTag(tag)
	}
}

func (p *Parser) parseLabelByte(name string) Expression {
	p.expect(LBracket, "[")
	off := p.parseIntLiteral()
	p.expect(Colon, ":")
	length := p.parseIntLiteral()
	p.expect(RBracket, "]")
	return LabelByteExpr{Name: name, Offset: off, Length: length}
}

func (p *Parser) parseArrayLiteral() Expression {
	p.expect(LBracket, "[")
	var longs []int64
	var bytes []byte
	isLong := true
	parseOne := func() {
		lit := p.parseLiteral()
		switch v := lit.(type) {
		case IntegerExpr:
			longs = append(longs, v.Value)
			bytes = append(bytes, byte(v.Value))
		default:
			isLong = false
		}
	}
	if p.cur().Kind != RBracket {
		parseOne()
		for p.cur().Kind == Comma {
			p.advance()
			parseOne()
		}
	}
	p.expect(RBracket, "]")
	if isLong {
		return ArrayLongExpr{Values: longs}
	}
	return ArrayExpr{Values: bytes}
}

// parseLiteral implements:
//   literal := INT | IPV4 ["/" INT] | MAC | TIMESTAMP | BOOL | STRING | CONSTANT
func (p *Parser) parseLiteral() Expression {
	t := p.cur()
	switch t.Kind {
	case IntLit:
		p.advance()
		n, _ := strconv.ParseInt(t.Value, 10, 64)
		return IntegerExpr{Value: n}
	case HexLit:
		p.advance()
		n, _ := strconv.ParseInt(strings.TrimPrefix(t.Value, "0x"), 16, 64)
		return IntegerExpr{Value: n}
	case FloatLit:
		p.advance()
		// Float literals carry no dedicated Expression variant in §3;
		// truncate to the integer part, matching the PQL integer-centric
		// expression model.
		whole := strings.SplitN(t.Value, ".", 2)[0]
		n, _ := strconv.ParseInt(whole, 10, 64)
		return IntegerExpr{Value: n}
	case IPv4Lit:
		p.advance()
		addr, ok := parseIPv4String(t.Value)
		if !ok {
			p.errorf(t, "invalid IPv4 literal %q", t.Value)
		}
		mask := uint8(32)
		if p.cur().Kind == Slash {
			p.advance()
			mask = uint8(p.parseIntLiteral())
		}
		return IPv4Expr{Addr: addr, Mask: mask}
	case MacLit:
		p.advance()
		v, ok := parseMacString(t.Value)
		if !ok {
			p.errorf(t, "invalid MAC literal %q", t.Value)
		}
		return MacAddressExpr{Value: v}
	case TimestampLit:
		p.advance()
		ts, ok := parseTimestampString(t.Value)
		if !ok {
			p.errorf(t, "invalid timestamp literal %q", t.Value)
		}
		return TimestampExpr{Value: ts}
	case DateLit:
		p.advance()
		ts, ok := parseTimestampString(t.Value + " 00:00:00")
		if !ok {
			p.errorf(t, "invalid date literal %q", t.Value)
		}
		return TimestampExpr{Value: ts}
	case True:
		p.advance()
		return BooleanExpr{Value: true}
	case False:
		p.advance()
		return BooleanExpr{Value: false}
	case StringLit:
		p.advance()
		return StringExpr{Value: t.Value}
	case ProtoConst:
		p.advance()
		if tag, ok := protos.KeywordTag[strings.ToUpper(t.Value)]; ok {
			p.stmt.AddSearchTag(tag)
		}
		return IntegerExpr{Value: protoConstValue[strings.ToUpper(t.Value)]}
	default:
		p.errorf(t, "expected a literal, got %s %q", t.Kind, t.Value)
		p.advance()
		return NoOp{}
	}
}

// parseTsExpr implements ts_expr := TIMESTAMP | NOW | NOW "-" INT IDENT.
func (p *Parser) parseTsExpr() int64 {
	t := p.cur()
	switch t.Kind {
	case TimestampLit:
		p.advance()
		ts, _ := parseTimestampString(t.Value)
		return ts
	case DateLit:
		p.advance()
		ts, _ := parseTimestampString(t.Value + " 00:00:00")
		return ts
	case Now:
		p.advance()
		now := nowFn()
		if p.cur().Kind == Minus {
			p.advance()
			n := p.parseIntLiteral()
			unit := p.parseIdentName()
			return now - int64(n)*unitSeconds(unit)
		}
		return now
	default:
		p.errorf(t, "expected a timestamp or NOW, got %s %q", t.Kind, t.Value)
		p.advance()
		return 0
	}
}

func unitSeconds(unit string) int64 {
	switch unit {
	case "s":
		return 1
	case "m":
		return 60
	case "h":
		return 3600
	case "d":
		return 86400
	case "w":
		return 7 * 86400
	default:
		return 1
	}
}
