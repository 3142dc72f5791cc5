// Package interp implements the expression interpreter of §4.7: it walks
// a parsed Expression tree against one Packet at a time, producing an
// Object, and folds matching packets into aggregate/group-by/DISTINCT
// state on the caller's behalf.
package interp

import "github.com/jpdube/packetdb/internal/field"

// Kind tags the variant held by an Object -- the Expression evaluation
// result space, which is the literal variant space plus Null (§4.7).
type Kind int

const (
	Null Kind = iota
	Integer
	Long
	String
	Timestamp
	IPv4
	MacAddress
	Boolean
	ByteArray
	LongArray
)

// Object is the value an Expression evaluates to.
type Object struct {
	Kind    Kind
	Int     int64
	Str     string
	Mask    uint8
	Bytes   []byte
	LongArr []int64
}

func NullObj() Object                  { return Object{Kind: Null} }
func IntObj(v int64) Object            { return Object{Kind: Integer, Int: v} }
func LongObj(v int64) Object           { return Object{Kind: Long, Int: v} }
func StringObj(v string) Object        { return Object{Kind: String, Str: v} }
func TimestampObj(v int64) Object      { return Object{Kind: Timestamp, Int: v} }
func IPv4Obj(addr uint32, mask uint8) Object {
	return Object{Kind: IPv4, Int: int64(addr), Mask: mask}
}
func MacObj(v uint64) Object   { return Object{Kind: MacAddress, Int: int64(v)} }
func BoolObj(v bool) Object {
	i := int64(0)
	if v {
		i = 1
	}
	return Object{Kind: Boolean, Int: i}
}
func ByteArrayObj(v []byte) Object  { return Object{Kind: ByteArray, Bytes: v} }
func LongArrayObj(v []int64) Object { return Object{Kind: LongArray, LongArr: v} }

// Bool reports the truthiness of a Boolean Object; other kinds return
// false.
func (o Object) Bool() bool { return o.Kind == Boolean && o.Int != 0 }

// fromField converts a resolved dissector Field into the Object space
// (§4.7 Label resolution).
func fromField(f field.Field) Object {
	// Every numeric/address/time field resolves to a plain Integer (§4.7's
	// coercion table pairs "Integer" against the richer literal variants
	// IPv4/MacAddress/Timestamp -- the richer tag lives on the literal
	// side of a comparison, not the dissector's field value).
	switch f.Kind {
	case field.KindString:
		return StringObj(f.Str)
	case field.KindByteArray:
		return ByteArrayObj(f.Bytes)
	default:
		return IntObj(f.Int)
	}
}

// ToU64 widens an Object for aggregate folding (§4.7 Sum/Avg/Min/Max);
// incompatible kinds yield 0.
func (o Object) ToU64() uint64 {
	switch o.Kind {
	case Integer, Long, Timestamp, IPv4, MacAddress, Boolean:
		return uint64(o.Int)
	default:
		return 0
	}
}

// TypeName names an Object's kind for TypeMismatch error reporting (§7).
func (k Kind) TypeName() string {
	switch k {
	case Null:
		return "Null"
	case Integer:
		return "Integer"
	case Long:
		return "Long"
	case String:
		return "String"
	case Timestamp:
		return "Timestamp"
	case IPv4:
		return "IPv4"
	case MacAddress:
		return "MacAddress"
	case Boolean:
		return "Boolean"
	case ByteArray:
		return "ByteArray"
	case LongArray:
		return "LongArray"
	default:
		return "Unknown"
	}
}
