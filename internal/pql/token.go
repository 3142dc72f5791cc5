// Package pql implements the PQL lexer, post-pass token combiner, and
// recursive-descent parser of §4.2/§4.3, producing the typed PqlStatement
// / Expression tree of §3 that the planner and interpreter consume.
package pql

import "strings"

// Kind tags a token.
type Kind int

const (
	EOF Kind = iota

	// Keywords
	Select
	From
	Where
	Interval
	To
	Now
	Top
	Offset
	And
	Or
	Not
	In
	Like
	True
	False
	Distinct
	Group
	By
	As
	Count
	Sum
	Min
	Max
	Avg
	Bandwidth
	Print
	Var

	// Protocol constants
	ProtoConst

	// Punctuation
	EqEq
	NotEq
	LtEq
	GtEq
	Lt
	Gt
	Assign
	Plus
	Minus
	Star
	Slash
	Comma
	Semicolon
	Amp
	Pipe
	Caret
	LParen
	RParen
	LBracket
	RBracket
	Colon
	Dot

	// Literals
	IntLit
	HexLit
	StringLit
	Ident

	// Stage-2 combined tokens
	IPv4Lit
	MacLit
	TimestampLit
	DateLit
	TimeLit
	FloatLit
	DottedIdent
	NotInTok
	CountCall
	AggregateTok
	GroupByTok
	AsTok
)

// Token is a lexeme with source position, produced by stage 1 and
// rewritten in place by stage 2 (§4.2).
type Token struct {
	Kind  Kind
	Value string // literal text / keyword text / identifier / combined literal text
	Extra string // secondary payload: aggregate field name, alias name
	Line  int
	Col   int
}

var keywords = map[string]Kind{
	"select":    Select,
	"from":      From,
	"where":     Where,
	"interval":  Interval,
	"to":        To,
	"now":       Now,
	"top":       Top,
	"offset":    Offset,
	"and":       And,
	"or":        Or,
	"not":       Not,
	"in":        In,
	"like":      Like,
	"true":      True,
	"false":     False,
	"distinct":  Distinct,
	"group":     Group,
	"by":        By,
	"as":        As,
	"count":     Count,
	"sum":       Sum,
	"min":       Min,
	"max":       Max,
	"avg":       Avg,
	"bandwidth": Bandwidth,
	"print":     Print,
	"var":       Var,
}

var protoConsts = map[string]bool{
	"ETH_IPV4":    true,
	"IPV4_TCP":    true,
	"IPV4_UDP":    true,
	"IPV4_ICMP":   true,
	"HTTPS":       true,
	"DNS":         true,
	"DHCP_SERVER": true,
	"DHCP_CLIENT": true,
	"SSH":         true,
	"RDP":         true,
	"TELNET":      true,
	"HTTP":        true,
}

// classifyWord resolves an identifier-shaped word to its stage-1 Kind:
// keyword, protocol constant, or plain identifier.
func classifyWord(w string) Kind {
	if k, ok := keywords[strings.ToLower(w)]; ok {
		return k
	}
	if protoConsts[strings.ToUpper(w)] {
		return ProtoConst
	}
	return Ident
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Select:
		return "SELECT"
	case From:
		return "FROM"
	case Where:
		return "WHERE"
	case Interval:
		return "INTERVAL"
	case To:
		return "TO"
	case Now:
		return "NOW"
	case Top:
		return "TOP"
	case Offset:
		return "OFFSET"
	case And:
		return "AND"
	case Or:
		return "OR"
	case Not:
		return "NOT"
	case In:
		return "IN"
	case Like:
		return "LIKE"
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	case Distinct:
		return "DISTINCT"
	case Group:
		return "GROUP"
	case By:
		return "BY"
	case As:
		return "AS"
	case Count, CountCall:
		return "COUNT"
	case Sum:
		return "SUM"
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Avg:
		return "AVG"
	case Bandwidth:
		return "BANDWIDTH"
	case ProtoConst:
		return "PROTO_CONST"
	case IntLit:
		return "INT"
	case HexLit:
		return "HEX"
	case StringLit:
		return "STRING"
	case Ident:
		return "IDENT"
	case IPv4Lit:
		return "IPV4"
	case MacLit:
		return "MAC"
	case TimestampLit:
		return "TIMESTAMP"
	case DateLit:
		return "DATE"
	case TimeLit:
		return "TIME"
	case FloatLit:
		return "FLOAT"
	case DottedIdent:
		return "DOTTED_IDENT"
	case NotInTok:
		return "NOT_IN"
	case AggregateTok:
		return "AGGREGATE"
	case GroupByTok:
		return "GROUP_BY"
	case AsTok:
		return "AS_ALIAS"
	default:
		return "?"
	}
}
