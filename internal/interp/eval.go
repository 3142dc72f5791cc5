package interp

import (
	"regexp"

	"github.com/jpdube/packetdb/internal/dissect"
	"github.com/jpdube/packetdb/internal/pql"
)

// likeCache bounds compiled regex reuse across packets within one query;
// PQL's `like` operator is matched with Go's regexp package, which -- per
// §9's caution against catastrophic backtracking in user-supplied
// patterns -- guarantees linear-time matching unlike a backtracking engine,
// so no additional bound on pattern complexity is required here.
type likeCache map[string]*regexp.Regexp

func (c likeCache) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := c[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c[pattern] = re
	return re, nil
}

// Eval walks expr against pkt, producing an Object (§4.7). A Label whose
// field the dissector has no value for yields Null, and any infix
// touching Null yields Null -- the packet simply does not match.
func Eval(expr pql.Expression, pkt *dissect.Packet, cache likeCache) (Object, error) {
	switch e := expr.(type) {
	case nil, pql.NoOp:
		return BoolObj(true), nil
	case pql.IntegerExpr:
		return IntObj(e.Value), nil
	case pql.LongExpr:
		return LongObj(e.Value), nil
	case pql.StringExpr:
		return StringObj(e.Value), nil
	case pql.TimestampExpr:
		return TimestampObj(e.Value), nil
	case pql.IPv4Expr:
		return IPv4Obj(e.Addr, e.Mask), nil
	case pql.MacAddressExpr:
		return MacObj(e.Value), nil
	case pql.BooleanExpr:
		return BoolObj(e.Value), nil
	case pql.ArrayExpr:
		return ByteArrayObj(e.Values), nil
	case pql.ArrayLongExpr:
		return LongArrayObj(e.Values), nil
	case pql.GroupExpr:
		return Eval(e.Inner, pkt, cache)
	case pql.LabelExpr:
		f, ok := pkt.GetField(e.Name)
		if !ok {
			return NullObj(), nil
		}
		return fromField(f), nil
	case pql.LabelByteExpr:
		f, ok := pkt.GetFieldByte(e.Name, e.Offset, e.Length)
		if !ok {
			return NullObj(), nil
		}
		return fromField(f), nil
	case pql.BinOpExpr:
		return evalBinOp(e, pkt, cache)
	default:
		return NullObj(), nil
	}
}

func evalBinOp(e pql.BinOpExpr, pkt *dissect.Packet, cache likeCache) (Object, error) {
	lhs, err := Eval(e.LHS, pkt, cache)
	if err != nil {
		return NullObj(), err
	}
	rhs, err := Eval(e.RHS, pkt, cache)
	if err != nil {
		return NullObj(), err
	}
	if lhs.Kind == Null || rhs.Kind == Null {
		return NullObj(), nil
	}
	op := opName(e.Op)

	switch {
	case lhs.Kind == Integer && rhs.Kind == Integer,
		lhs.Kind == Long && rhs.Kind == Long,
		lhs.Kind == Integer && rhs.Kind == Long,
		lhs.Kind == Long && rhs.Kind == Integer:
		return evalIntInt(e.Op, lhs, rhs, op)
	case (lhs.Kind == Integer || lhs.Kind == Long) && rhs.Kind == IPv4:
		return evalIntIPv4(e.Op, lhs, rhs, op)
	case (lhs.Kind == Integer || lhs.Kind == Long) && rhs.Kind == MacAddress:
		return evalEqNe(e.Op, lhs.Int == rhs.Int, op, lhs.Kind, rhs.Kind)
	case (lhs.Kind == Integer || lhs.Kind == Long) && rhs.Kind == Timestamp:
		return evalIntInt(e.Op, lhs, rhs, op)
	case (lhs.Kind == Integer || lhs.Kind == Long) && rhs.Kind == LongArray:
		return evalIntLongArray(e.Op, lhs, rhs, op)
	case lhs.Kind == String && rhs.Kind == String:
		return evalStringString(e.Op, lhs, rhs, cache, op)
	case lhs.Kind == ByteArray && rhs.Kind == ByteArray:
		return evalByteArrayEq(e.Op, lhs, rhs, op)
	case lhs.Kind == Boolean && rhs.Kind == Boolean:
		return evalBoolBool(e.Op, lhs, rhs, op)
	case lhs.Kind == Integer && rhs.Kind == Boolean, lhs.Kind == Boolean && rhs.Kind == Integer:
		return evalIntBool(e.Op, lhs, rhs, op)
	default:
		return NullObj(), newTypeMismatch(lhs.Kind, op, rhs.Kind, "binop")
	}
}

func evalIntInt(op pql.Operator, lhs, rhs Object, opName string) (Object, error) {
	l, r := lhs.Int, rhs.Int
	switch op {
	case pql.OpAdd:
		return IntObj(l + r), nil
	case pql.OpSub:
		return IntObj(l - r), nil
	case pql.OpMul:
		return IntObj(l * r), nil
	case pql.OpMask:
		return IntObj(l & r), nil
	case pql.OpEqual:
		return BoolObj(l == r), nil
	case pql.OpNE:
		return BoolObj(l != r), nil
	case pql.OpLT:
		return BoolObj(l < r), nil
	case pql.OpLE:
		return BoolObj(l <= r), nil
	case pql.OpGT:
		return BoolObj(l > r), nil
	case pql.OpGE:
		return BoolObj(l >= r), nil
	case pql.OpBAnd:
		return IntObj(l & r), nil
	case pql.OpBOr:
		return IntObj(l | r), nil
	case pql.OpBXor:
		return IntObj(l ^ r), nil
	case pql.OpShl:
		return IntObj(l << uint(r)), nil
	case pql.OpShr:
		return IntObj(l >> uint(r)), nil
	default:
		return NullObj(), newTypeMismatch(lhs.Kind, opName, rhs.Kind, "int-int")
	}
}

func evalIntIPv4(op pql.Operator, lhs, rhs Object, opName string) (Object, error) {
	if op != pql.OpEqual && op != pql.OpNE {
		return NullObj(), newTypeMismatch(lhs.Kind, opName, rhs.Kind, "int-ipv4")
	}
	contains := cidrContains(uint32(rhs.Int), rhs.Mask, uint32(lhs.Int))
	if op == pql.OpNE {
		contains = !contains
	}
	return BoolObj(contains), nil
}

// cidrContains mirrors index.cidrContains (§8 invariant 4): reflexive at
// /32, exact prefix comparison otherwise. Duplicated rather than imported
// to keep interp independent of the index package's on-disk concerns.
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

func evalEqNe(op pql.Operator, eq bool, opName string, l, r Kind) (Object, error) {
	switch op {
	case pql.OpEqual:
		return BoolObj(eq), nil
	case pql.OpNE:
		return BoolObj(!eq), nil
	default:
		return NullObj(), newTypeMismatch(l, opName, r, "eq-ne")
	}
}

func evalIntLongArray(op pql.Operator, lhs, rhs Object, opName string) (Object, error) {
	if op != pql.OpIn && op != pql.OpNotIn {
		return NullObj(), newTypeMismatch(lhs.Kind, opName, rhs.Kind, "int-longarray")
	}
	found := false
	for _, v := range rhs.LongArr {
		if v == lhs.Int {
			found = true
			break
		}
	}
	if op == pql.OpNotIn {
		found = !found
	}
	return BoolObj(found), nil
}

func evalStringString(op pql.Operator, lhs, rhs Object, cache likeCache, opName string) (Object, error) {
	switch op {
	case pql.OpEqual:
		return BoolObj(lhs.Str == rhs.Str), nil
	case pql.OpNE:
		return BoolObj(lhs.Str != rhs.Str), nil
	case pql.OpIn:
		return BoolObj(lhs.Str == rhs.Str), nil
	case pql.OpNotIn:
		return BoolObj(lhs.Str != rhs.Str), nil
	case pql.OpLike:
		re, err := cache.compile(rhs.Str)
		if err != nil {
			return NullObj(), newTypeMismatch(lhs.Kind, opName, rhs.Kind, "like: "+err.Error())
		}
		return BoolObj(re.MatchString(lhs.Str)), nil
	default:
		return NullObj(), newTypeMismatch(lhs.Kind, opName, rhs.Kind, "string-string")
	}
}

func evalByteArrayEq(op pql.Operator, lhs, rhs Object, opName string) (Object, error) {
	eq := len(lhs.Bytes) == len(rhs.Bytes)
	if eq {
		for i := range lhs.Bytes {
			if lhs.Bytes[i] != rhs.Bytes[i] {
				eq = false
				break
			}
		}
	}
	return evalEqNe(op, eq, opName, lhs.Kind, rhs.Kind)
}

func evalBoolBool(op pql.Operator, lhs, rhs Object, opName string) (Object, error) {
	l, r := lhs.Bool(), rhs.Bool()
	switch op {
	case pql.OpEqual:
		return BoolObj(l == r), nil
	case pql.OpNE:
		return BoolObj(l != r), nil
	case pql.OpLAnd:
		return BoolObj(l && r), nil
	case pql.OpLOr:
		return BoolObj(l || r), nil
	default:
		return NullObj(), newTypeMismatch(lhs.Kind, opName, rhs.Kind, "bool-bool")
	}
}

func evalIntBool(op pql.Operator, lhs, rhs Object, opName string) (Object, error) {
	l := lhs.Kind == Boolean && lhs.Bool() || lhs.Kind == Integer && lhs.Int != 0
	r := rhs.Kind == Boolean && rhs.Bool() || rhs.Kind == Integer && rhs.Int != 0
	switch op {
	case pql.OpEqual:
		return BoolObj(l == r), nil
	case pql.OpNE:
		return BoolObj(l != r), nil
	case pql.OpLAnd:
		return BoolObj(l && r), nil
	case pql.OpLOr:
		return BoolObj(l || r), nil
	default:
		return NullObj(), newTypeMismatch(lhs.Kind, opName, rhs.Kind, "int-bool")
	}
}

func opName(op pql.Operator) string {
	switch op {
	case pql.OpAdd:
		return "+"
	case pql.OpSub:
		return "-"
	case pql.OpMul:
		return "*"
	case pql.OpMask:
		return "&"
	case pql.OpEqual:
		return "=="
	case pql.OpNE:
		return "!="
	case pql.OpLT:
		return "<"
	case pql.OpLE:
		return "<="
	case pql.OpGT:
		return ">"
	case pql.OpGE:
		return ">="
	case pql.OpLAnd:
		return "and"
	case pql.OpLOr:
		return "or"
	case pql.OpBAnd:
		return "&"
	case pql.OpBOr:
		return "|"
	case pql.OpBXor:
		return "^"
	case pql.OpShl:
		return "<<"
	case pql.OpShr:
		return ">>"
	case pql.OpIn:
		return "in"
	case pql.OpNotIn:
		return "not in"
	case pql.OpLike:
		return "like"
	default:
		return "?"
	}
}
