// Package protos carries the protocol bitmap tag table that the dissector
// and the per-file index share as one truth (§3, §4.1, §4.4), plus the
// keyword<->tag mapping the parser uses to wire protocol constants into
// search_type (§4.3).
//
// Adapted from the teacher's protos package: where sipcapture/heplify used
// this package to decode one fixed application protocol (RTP) out of a
// gopacket layer, here it owns the ProtocolTag enumeration instead --
// the single piece of protocol-identity bookkeeping the whole query core
// depends on.
package protos

// Tag is a bitmask identifying a protocol a packet carries. Bits are
// additive and never renumbered (§3).
type Tag uint32

const (
	Ethernet Tag = 0x001
	Arp      Tag = 0x002
	IPv4     Tag = 0x004
	Icmp     Tag = 0x008
	Udp      Tag = 0x010
	Tcp      Tag = 0x020
	Dns      Tag = 0x040
	Dhcp     Tag = 0x080
	Https    Tag = 0x100
	Http     Tag = 0x200
	IPv6     Tag = 0x400
	Ssh      Tag = 0x800
	Telnet   Tag = 0x1000
	Ntp      Tag = 0x2000
	Rdp      Tag = 0x4000
	Smb      Tag = 0x8000
	Smtp     Tag = 0x10000
)

var names = map[Tag]string{
	Ethernet: "eth",
	Arp:      "arp",
	IPv4:     "ipv4",
	Icmp:     "icmp",
	Udp:      "udp",
	Tcp:      "tcp",
	Dns:      "dns",
	Dhcp:     "dhcp",
	Https:    "https",
	Http:     "http",
	IPv6:     "ipv6",
	Ssh:      "ssh",
	Telnet:   "telnet",
	Ntp:      "ntp",
	Rdp:      "rdp",
	Smb:      "smb",
	Smtp:     "smtp",
}

func (t Tag) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// Has reports whether bitmap carries every bit set in t.
func (t Tag) Has(bitmap uint32) bool {
	return uint32(t)&bitmap == uint32(t)
}

// KeywordTag maps a PQL protocol-constant keyword (§4.2, §4.3) to its tag.
var KeywordTag = map[string]Tag{
	"ETH_IPV4":     IPv4,
	"IPV4_TCP":     Tcp,
	"IPV4_UDP":     Udp,
	"IPV4_ICMP":    Icmp,
	"HTTPS":        Https,
	"DNS":          Dns,
	"DHCP_SERVER":  Dhcp,
	"DHCP_CLIENT":  Dhcp,
	"SSH":          Ssh,
	"RDP":          Rdp,
	"TELNET":       Telnet,
	"HTTP":         Http,
}

// LayerPrefixTag maps the left side of a dotted identifier (e.g. "tcp" in
// "tcp.dport") to the tag the parser adds to search_type when that
// identifier is referenced in a where-clause (§4.3).
var LayerPrefixTag = map[string]Tag{
	"eth":   Ethernet,
	"arp":   Arp,
	"ipv4":  IPv4,
	"icmp":  Icmp,
	"udp":   Udp,
	"tcp":   Tcp,
}
