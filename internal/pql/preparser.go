package pql

import "strings"

// Combine is the stage-2 post-pass combiner (§4.2): it recognizes fixed
// token patterns via lookahead and rewrites them into higher-level
// tokens. Tokens not matching any pattern pass through unchanged.
//
// Implemented as two left-to-right sweeps: the first combines numeric and
// dotted-identifier literals (IPv4, MAC, Timestamp, Date, Time, Float,
// dotted identifier), the second combines the keyword-shaped combos
// (NOT IN, COUNT(), aggregate calls, GROUP BY, AS ident) that depend on
// the first sweep having already produced DottedIdent tokens. Each sweep
// is a single bounded-lookahead scan; no backtracking beyond the fixed
// window a pattern needs.
func Combine(tokens []Token) []Token {
	return combineKeywordCombos(combineLiterals(tokens))
}

func combineLiterals(in []Token) []Token {
	out := make([]Token, 0, len(in))
	i := 0
	for i < len(in) {
		t := in[i]
		switch t.Kind {
		case IntLit:
			if lit, n, ok := matchMac(in, i); ok {
				out = append(out, lit)
				i += n
				continue
			}
			if lit, n, ok := matchTimestamp(in, i); ok {
				out = append(out, lit)
				i += n
				continue
			}
			if lit, n, ok := matchIPv4(in, i); ok {
				out = append(out, lit)
				i += n
				continue
			}
			if lit, n, ok := matchDate(in, i); ok {
				out = append(out, lit)
				i += n
				continue
			}
			if lit, n, ok := matchTime(in, i); ok {
				out = append(out, lit)
				i += n
				continue
			}
			if lit, n, ok := matchFloat(in, i); ok {
				out = append(out, lit)
				i += n
				continue
			}
			out = append(out, t)
			i++
		case Ident:
			if lit, n, ok := matchDottedIdent(in, i); ok {
				out = append(out, lit)
				i += n
				continue
			}
			out = append(out, t)
			i++
		default:
			out = append(out, t)
			i++
		}
	}
	return out
}

func at(toks []Token, i int) Token {
	if i >= len(toks) {
		return Token{Kind: EOF}
	}
	return toks[i]
}

// matchMac recognizes INT:INT:INT:INT:INT:INT (11 tokens).
func matchMac(toks []Token, i int) (Token, int, bool) {
	want := []Kind{IntLit, Colon, IntLit, Colon, IntLit, Colon, IntLit, Colon, IntLit, Colon, IntLit}
	if !matchKinds(toks, i, want) {
		return Token{}, 0, false
	}
	parts := []string{toks[i].Value, toks[i+2].Value, toks[i+4].Value, toks[i+6].Value, toks[i+8].Value, toks[i+10].Value}
	return Token{Kind: MacLit, Value: strings.Join(parts, ":"), Line: toks[i].Line, Col: toks[i].Col}, len(want), true
}

// matchTimestamp recognizes INT-INT-INT INT:INT:INT (10 tokens: date
// followed immediately, in the token stream, by a bare time).
func matchTimestamp(toks []Token, i int) (Token, int, bool) {
	want := []Kind{IntLit, Minus, IntLit, Minus, IntLit, IntLit, Colon, IntLit, Colon, IntLit}
	if !matchKinds(toks, i, want) {
		return Token{}, 0, false
	}
	date := strings.Join([]string{toks[i].Value, toks[i+2].Value, toks[i+4].Value}, "-")
	tm := strings.Join([]string{toks[i+5].Value, toks[i+7].Value, toks[i+9].Value}, ":")
	return Token{Kind: TimestampLit, Value: date + " " + tm, Line: toks[i].Line, Col: toks[i].Col}, len(want), true
}

// matchIPv4 recognizes INT.INT.INT.INT (7 tokens).
func matchIPv4(toks []Token, i int) (Token, int, bool) {
	want := []Kind{IntLit, Dot, IntLit, Dot, IntLit, Dot, IntLit}
	if !matchKinds(toks, i, want) {
		return Token{}, 0, false
	}
	parts := []string{toks[i].Value, toks[i+2].Value, toks[i+4].Value, toks[i+6].Value}
	return Token{Kind: IPv4Lit, Value: strings.Join(parts, "."), Line: toks[i].Line, Col: toks[i].Col}, len(want), true
}

// matchDate recognizes INT-INT-INT (5 tokens).
func matchDate(toks []Token, i int) (Token, int, bool) {
	want := []Kind{IntLit, Minus, IntLit, Minus, IntLit}
	if !matchKinds(toks, i, want) {
		return Token{}, 0, false
	}
	parts := []string{toks[i].Value, toks[i+2].Value, toks[i+4].Value}
	return Token{Kind: DateLit, Value: strings.Join(parts, "-"), Line: toks[i].Line, Col: toks[i].Col}, len(want), true
}

// matchTime recognizes INT:INT:INT (5 tokens).
func matchTime(toks []Token, i int) (Token, int, bool) {
	want := []Kind{IntLit, Colon, IntLit, Colon, IntLit}
	if !matchKinds(toks, i, want) {
		return Token{}, 0, false
	}
	parts := []string{toks[i].Value, toks[i+2].Value, toks[i+4].Value}
	return Token{Kind: TimeLit, Value: strings.Join(parts, ":"), Line: toks[i].Line, Col: toks[i].Col}, len(want), true
}

// matchFloat recognizes INT.INT (3 tokens), not followed by another
// ".INT" (which would make it part of an IPv4 literal -- already tried
// first by the caller, so reaching here means it didn't match).
func matchFloat(toks []Token, i int) (Token, int, bool) {
	want := []Kind{IntLit, Dot, IntLit}
	if !matchKinds(toks, i, want) {
		return Token{}, 0, false
	}
	if at(toks, i+3).Kind == Dot && at(toks, i+4).Kind == IntLit {
		return Token{}, 0, false
	}
	return Token{Kind: FloatLit, Value: toks[i].Value + "." + toks[i+2].Value, Line: toks[i].Line, Col: toks[i].Col}, len(want), true
}

// matchDottedIdent recognizes IDENT.IDENT, and greedily extends over
// further ".IDENT" segments (layer.field, or deeper dotted paths).
func matchDottedIdent(toks []Token, i int) (Token, int, bool) {
	want := []Kind{Ident, Dot, Ident}
	if !matchKinds(toks, i, want) {
		return Token{}, 0, false
	}
	parts := []string{toks[i].Value, toks[i+2].Value}
	n := 3
	for {
		j := i + n
		if at(toks, j).Kind == Dot && at(toks, j+1).Kind == Ident {
			parts = append(parts, toks[j+1].Value)
			n += 2
			continue
		}
		break
	}
	return Token{Kind: DottedIdent, Value: strings.Join(parts, "."), Line: toks[i].Line, Col: toks[i].Col}, n, true
}

func matchKinds(toks []Token, i int, want []Kind) bool {
	for j, k := range want {
		if at(toks, i+j).Kind != k {
			return false
		}
	}
	return true
}

var aggKeyword = map[Kind]string{
	Sum:       "sum",
	Min:       "min",
	Max:       "max",
	Avg:       "avg",
	Bandwidth: "bandwidth",
}

func combineKeywordCombos(in []Token) []Token {
	out := make([]Token, 0, len(in))
	i := 0
	for i < len(in) {
		t := in[i]
		switch {
		case t.Kind == Not && at(in, i+1).Kind == In:
			out = append(out, Token{Kind: NotInTok, Value: "not_in", Line: t.Line, Col: t.Col})
			i += 2
		case t.Kind == Count && at(in, i+1).Kind == LParen && at(in, i+2).Kind == RParen:
			out = append(out, Token{Kind: CountCall, Value: "count", Line: t.Line, Col: t.Col})
			i += 3
		case isAggKind(t.Kind) && at(in, i+1).Kind == LParen && at(in, i+2).Kind == DottedIdent && at(in, i+3).Kind == RParen:
			out = append(out, Token{Kind: AggregateTok, Value: aggKeyword[t.Kind], Extra: in[i+2].Value, Line: t.Line, Col: t.Col})
			i += 4
		case t.Kind == Group && at(in, i+1).Kind == By:
			out = append(out, Token{Kind: GroupByTok, Value: "group_by", Line: t.Line, Col: t.Col})
			i += 2
		case t.Kind == As && at(in, i+1).Kind == Ident:
			out = append(out, Token{Kind: AsTok, Value: "as", Extra: in[i+1].Value, Line: t.Line, Col: t.Col})
			i += 2
		default:
			out = append(out, t)
			i++
		}
	}
	return out
}

func isAggKind(k Kind) bool {
	_, ok := aggKeyword[k]
	return ok
}
