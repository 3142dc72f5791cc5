package dissect

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/jpdube/packetdb/internal/field"
)

// maxPointerHops bounds DNS label-pointer decompression (§4.1, §9): the
// source this spec is distilled from has no such bound, which this
// implementation must not replicate.
const maxPointerHops = 128

type dnsRR struct {
	name   string
	typ    uint16
	class  uint16
	ttl    uint32
	rdata  []byte
}

type dnsLayer struct {
	id                           uint16
	flags                        uint16
	qdcount, ancount, ns, arcount uint16
	qname                        string
	qtype, qclass                uint16
	answers                      []dnsRR
}

func decodeDNS(buf []byte) (*dnsLayer, bool) {
	if len(buf) < 12 {
		return nil, false
	}
	d := &dnsLayer{
		id:      binary.BigEndian.Uint16(buf[0:2]),
		flags:   binary.BigEndian.Uint16(buf[2:4]),
		qdcount: binary.BigEndian.Uint16(buf[4:6]),
		ancount: binary.BigEndian.Uint16(buf[6:8]),
		ns:      binary.BigEndian.Uint16(buf[8:10]),
		arcount: binary.BigEndian.Uint16(buf[10:12]),
	}
	off := 12
	if d.qdcount > 0 {
		name, next, ok := decodeDNSName(buf, off)
		if !ok {
			return d, true
		}
		d.qname = name
		off = next
		if off+4 > len(buf) {
			return d, true
		}
		d.qtype = binary.BigEndian.Uint16(buf[off : off+2])
		d.qclass = binary.BigEndian.Uint16(buf[off+2 : off+4])
		off += 4
	}
	for i := 0; i < int(d.ancount) && off < len(buf); i++ {
		name, next, ok := decodeDNSName(buf, off)
		if !ok {
			break
		}
		off = next
		if off+10 > len(buf) {
			break
		}
		typ := binary.BigEndian.Uint16(buf[off : off+2])
		class := binary.BigEndian.Uint16(buf[off+2 : off+4])
		ttl := binary.BigEndian.Uint32(buf[off+4 : off+8])
		rdlen := int(binary.BigEndian.Uint16(buf[off+8 : off+10]))
		off += 10
		if off+rdlen > len(buf) {
			break
		}
		// rdata is kept raw regardless of type: names nested inside rdata
		// (CNAME/PTR/SOA/MX) are not re-decompressed here, matching the
		// field catalog's scope (answer name + rdata).
		rdata := buf[off : off+rdlen]
		d.answers = append(d.answers, dnsRR{name: name, typ: typ, class: class, ttl: ttl, rdata: append([]byte(nil), rdata...)})
		off += rdlen
	}
	return d, true
}

// decodeDNSName decodes a possibly-compressed name starting at off,
// bounding pointer hops at maxPointerHops and terminating on overrun
// (§4.1 DNS-specific rules, §9).
func decodeDNSName(buf []byte, off int) (string, int, bool) {
	var labels []string
	hops := 0
	cur := off
	end := -1 // position right after the first pointer/terminator, for the caller's cursor
	visited := map[int]bool{}
	for {
		if cur < 0 || cur >= len(buf) {
			return "", 0, false
		}
		l := int(buf[cur])
		if l == 0 {
			if end == -1 {
				end = cur + 1
			}
			break
		}
		if l&0xc0 == 0xc0 {
			if cur+1 >= len(buf) {
				return "", 0, false
			}
			hops++
			if hops > maxPointerHops {
				return "", 0, false
			}
			ptr := (int(l&0x3f) << 8) | int(buf[cur+1])
			if visited[ptr] {
				return "", 0, false // cycle guard
			}
			visited[ptr] = true
			if end == -1 {
				end = cur + 2
			}
			cur = ptr
			continue
		}
		if l&0xc0 != 0 {
			return "", 0, false // reserved label-length bits
		}
		if cur+1+l > len(buf) {
			return "", 0, false
		}
		labels = append(labels, string(buf[cur+1:cur+1+l]))
		cur += 1 + l
	}
	if end == -1 {
		end = cur
	}
	return strings.Join(labels, "."), end, true
}

func (d *dnsLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "id":
		return field.NewInt32("dns.id", int32(d.id)), true
	case "flags":
		return field.NewInt32("dns.flags", int32(d.flags)), true
	case "qdcount":
		return field.NewInt32("dns.qdcount", int32(d.qdcount)), true
	case "ancount":
		return field.NewInt32("dns.ancount", int32(d.ancount)), true
	case "nscount":
		return field.NewInt32("dns.nscount", int32(d.ns)), true
	case "arcount":
		return field.NewInt32("dns.arcount", int32(d.arcount)), true
	case "qname":
		return field.NewString("dns.qname", d.qname), true
	case "qtype":
		return field.NewInt32("dns.qtype", int32(d.qtype)), true
	case "qclass":
		return field.NewInt32("dns.qclass", int32(d.qclass)), true
	case "answers":
		arr := make([]field.Field, len(d.answers))
		for i, a := range d.answers {
			arr[i] = field.NewString(fmt.Sprintf("dns.answers[%d]", i), a.name)
		}
		return field.NewFieldArray("dns.answers", arr), true
	default:
		return field.Field{}, false
	}
}
