package pql

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeStatement serializes a PqlStatement to a compact binary form, used
// by the planner's query-plan cache (§4.5) to avoid re-lexing/re-parsing a
// repeated query text. The format is private to this package: callers
// treat it as an opaque blob round-tripped through DecodeStatement.
func EncodeStatement(s *PqlStatement) []byte {
	var b bytes.Buffer
	writeFieldList(&b, s.Select)
	writeStrings(&b, s.From)
	writeExpr(&b, s.Filter)
	writeU32(&b, uint32(s.Top))
	writeU32(&b, uint32(s.Offset))
	writeBool(&b, s.HasInterval)
	writeU64(&b, uint64(s.IntervalFrom))
	writeU64(&b, uint64(s.IntervalTo))
	writeU32(&b, s.SearchType)
	writeU16(&b, uint16(len(s.AggrList)))
	for _, a := range s.AggrList {
		writeU8(&b, uint8(a.Kind))
		writeString(&b, a.Field)
		writeString(&b, a.As)
	}
	writeFieldList(&b, s.GroupByFields)
	writeU16(&b, uint16(len(s.IPList)))
	for key, entries := range s.IPList {
		writeString(&b, key)
		writeU16(&b, uint16(len(entries)))
		for _, e := range entries {
			writeU32(&b, e.Addr)
			writeU8(&b, e.Mask)
		}
	}
	writeBool(&b, s.HasDistinct)
	return b.Bytes()
}

// DecodeStatement is the inverse of EncodeStatement.
func DecodeStatement(buf []byte) (*PqlStatement, error) {
	r := bytes.NewReader(buf)
	s := NewStatement()
	var err error
	if s.Select, err = readFieldList(r); err != nil {
		return nil, err
	}
	if s.From, err = readStrings(r); err != nil {
		return nil, err
	}
	if s.Filter, err = readExpr(r); err != nil {
		return nil, err
	}
	top, err := readU32(r)
	if err != nil {
		return nil, err
	}
	s.Top = int(top)
	off, err := readU32(r)
	if err != nil {
		return nil, err
	}
	s.Offset = int(off)
	if s.HasInterval, err = readBool(r); err != nil {
		return nil, err
	}
	from, err := readU64(r)
	if err != nil {
		return nil, err
	}
	s.IntervalFrom = int64(from)
	to, err := readU64(r)
	if err != nil {
		return nil, err
	}
	s.IntervalTo = int64(to)
	if s.SearchType, err = readU32(r); err != nil {
		return nil, err
	}
	aggN, err := readU16(r)
	if err != nil {
		return nil, err
	}
	s.AggrList = make([]Aggregate, 0, aggN)
	for i := 0; i < int(aggN); i++ {
		kind, err := readU8(r)
		if err != nil {
			return nil, err
		}
		fieldName, err := readString(r)
		if err != nil {
			return nil, err
		}
		as, err := readString(r)
		if err != nil {
			return nil, err
		}
		s.AggrList = append(s.AggrList, Aggregate{Kind: AggregateKind(kind), Field: fieldName, As: as})
	}
	if s.GroupByFields, err = readFieldList(r); err != nil {
		return nil, err
	}
	ipN, err := readU16(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ipN); i++ {
		key, err := readString(r)
		if err != nil {
			return nil, err
		}
		entN, err := readU16(r)
		if err != nil {
			return nil, err
		}
		entries := make([]IPEntry, 0, entN)
		for j := 0; j < int(entN); j++ {
			addr, err := readU32(r)
			if err != nil {
				return nil, err
			}
			mask, err := readU8(r)
			if err != nil {
				return nil, err
			}
			entries = append(entries, IPEntry{Addr: addr, Mask: mask})
		}
		s.IPList[key] = entries
	}
	if s.HasDistinct, err = readBool(r); err != nil {
		return nil, err
	}
	return s, nil
}

func writeFieldList(b *bytes.Buffer, fs []SelectField) {
	writeU16(b, uint16(len(fs)))
	for _, f := range fs {
		writeString(b, f.Name)
		writeU32(b, uint32(f.ID))
	}
}

func readFieldList(r *bytes.Reader) ([]SelectField, error) {
	n, err := readU16(r)
	if err != nil {
		return nil, err
	}
	out := make([]SelectField, 0, n)
	for i := 0; i < int(n); i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		id, err := readU32(r)
		if err != nil {
			return nil, err
		}
		out = append(out, SelectField{Name: name, ID: int(id)})
	}
	return out, nil
}

func writeStrings(b *bytes.Buffer, ss []string) {
	writeU16(b, uint16(len(ss)))
	for _, s := range ss {
		writeString(b, s)
	}
}

func readStrings(r *bytes.Reader) ([]string, error) {
	n, err := readU16(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

const (
	exprNoOp = iota
	exprInteger
	exprLong
	exprString
	exprTimestamp
	exprIPv4
	exprMac
	exprBool
	exprLabel
	exprLabelByte
	exprArray
	exprArrayLong
	exprGroup
	exprBinOp
)

func writeExpr(b *bytes.Buffer, e Expression) {
	switch v := e.(type) {
	case nil:
		writeU8(b, exprNoOp)
	case NoOp:
		writeU8(b, exprNoOp)
	case IntegerExpr:
		writeU8(b, exprInteger)
		writeU64(b, uint64(v.Value))
	case LongExpr:
		writeU8(b, exprLong)
		writeU64(b, uint64(v.Value))
	case StringExpr:
		writeU8(b, exprString)
		writeString(b, v.Value)
	case TimestampExpr:
		writeU8(b, exprTimestamp)
		writeU64(b, uint64(v.Value))
	case IPv4Expr:
		writeU8(b, exprIPv4)
		writeU32(b, v.Addr)
		writeU8(b, v.Mask)
	case MacAddressExpr:
		writeU8(b, exprMac)
		writeU64(b, v.Value)
	case BooleanExpr:
		writeU8(b, exprBool)
		writeBool(b, v.Value)
	case LabelExpr:
		writeU8(b, exprLabel)
		writeString(b, v.Name)
	case LabelByteExpr:
		writeU8(b, exprLabelByte)
		writeString(b, v.Name)
		writeU32(b, uint32(v.Offset))
		writeU32(b, uint32(v.Length))
	case ArrayExpr:
		writeU8(b, exprArray)
		writeU32(b, uint32(len(v.Values)))
		b.Write(v.Values)
	case ArrayLongExpr:
		writeU8(b, exprArrayLong)
		writeU32(b, uint32(len(v.Values)))
		for _, x := range v.Values {
			writeU64(b, uint64(x))
		}
	case GroupExpr:
		writeU8(b, exprGroup)
		writeExpr(b, v.Inner)
	case BinOpExpr:
		writeU8(b, exprBinOp)
		writeU8(b, uint8(v.Op))
		writeExpr(b, v.LHS)
		writeExpr(b, v.RHS)
	default:
		writeU8(b, exprNoOp)
	}
}

func readExpr(r *bytes.Reader) (Expression, error) {
	tag, err := readU8(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case exprNoOp:
		return NoOp{}, nil
	case exprInteger:
		v, err := readU64(r)
		return IntegerExpr{Value: int64(v)}, err
	case exprLong:
		v, err := readU64(r)
		return LongExpr{Value: int64(v)}, err
	case exprString:
		v, err := readString(r)
		return StringExpr{Value: v}, err
	case exprTimestamp:
		v, err := readU64(r)
		return TimestampExpr{Value: int64(v)}, err
	case exprIPv4:
		addr, err := readU32(r)
		if err != nil {
			return nil, err
		}
		mask, err := readU8(r)
		return IPv4Expr{Addr: addr, Mask: mask}, err
	case exprMac:
		v, err := readU64(r)
		return MacAddressExpr{Value: v}, err
	case exprBool:
		v, err := readBool(r)
		return BooleanExpr{Value: v}, err
	case exprLabel:
		v, err := readString(r)
		return LabelExpr{Name: v}, err
	case exprLabelByte:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		off, err := readU32(r)
		if err != nil {
			return nil, err
		}
		length, err := readU32(r)
		return LabelByteExpr{Name: name, Offset: int(off), Length: int(length)}, err
	case exprArray:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := r.Read(buf); err != nil {
			return nil, err
		}
		return ArrayExpr{Values: buf}, nil
	case exprArrayLong:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		vals := make([]int64, 0, n)
		for i := 0; i < int(n); i++ {
			v, err := readU64(r)
			if err != nil {
				return nil, err
			}
			vals = append(vals, int64(v))
		}
		return ArrayLongExpr{Values: vals}, nil
	case exprGroup:
		inner, err := readExpr(r)
		return GroupExpr{Inner: inner}, err
	case exprBinOp:
		op, err := readU8(r)
		if err != nil {
			return nil, err
		}
		lhs, err := readExpr(r)
		if err != nil {
			return nil, err
		}
		rhs, err := readExpr(r)
		return BinOpExpr{Op: Operator(op), LHS: lhs, RHS: rhs}, err
	default:
		return nil, fmt.Errorf("pql: codec: unknown expression tag %d", tag)
	}
}

func writeU8(b *bytes.Buffer, v uint8)   { b.WriteByte(v) }
func writeBool(b *bytes.Buffer, v bool) {
	if v {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
}
func writeU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}
func writeU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}
func writeU64(b *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.Write(tmp[:])
}
func writeString(b *bytes.Buffer, s string) {
	writeU16(b, uint16(len(s)))
	b.WriteString(s)
}

func readU8(r *bytes.Reader) (uint8, error)   { return r.ReadByte() }
func readBool(r *bytes.Reader) (bool, error) {
	v, err := r.ReadByte()
	return v != 0, err
}
func readU16(r *bytes.Reader) (uint16, error) {
	var tmp [2]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(tmp[:]), nil
}
func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}
func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := readFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}
func readString(r *bytes.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil {
		return n, err
	}
	if n != len(buf) {
		return n, fmt.Errorf("pql: codec: short read, want %d got %d", len(buf), n)
	}
	return n, nil
}
