// Package result implements the Result Cursor and lossless JSON
// projection of §4.8: an ordered sequence of Records collected as the
// planner streams candidate packets through the interpreter.
//
// Adapted from the teacher's save/wav.go: both are a sink that receives
// finished units of work from upstream processing and forwards them
// on -- there the units were RTP audio frames written to a live UDP
// socket, here they are projected query rows appended to an in-memory
// cursor -- the two domains share nothing below that shape.
package result

import (
	"github.com/jpdube/packetdb/internal/field"
)

// Record is one output row: an ordered sequence of Fields (§3).
type Record struct {
	Fields []field.Field
}

// Get returns the named field's value, if projected into this row.
func (r Record) Get(name string) (field.Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// JSONRow renders a Record as a name->value map using each Field's
// lossless JSON projection rule (§4.9).
func (r Record) JSONRow() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Name] = f.JSONValue()
	}
	return out
}
