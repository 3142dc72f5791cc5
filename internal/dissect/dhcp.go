package dissect

import (
	"encoding/binary"

	"github.com/jpdube/packetdb/internal/field"
)

// DHCP option codes recognized by the dissector (§4.1 DHCP-specific
// rules).
const (
	dhcpOptSubnetMask      = 0x01
	dhcpOptRouter          = 0x03
	dhcpOptDNSServers      = 0x06
	dhcpOptHostname        = 0x0c
	dhcpOptDomainName      = 0x0f
	dhcpOptRequestedIP     = 0x32
	dhcpOptLeaseTime       = 0x33
	dhcpOptMessageType     = 0x35
	dhcpOptServerID        = 0x36
	dhcpOptParamRequest    = 0x37
	dhcpOptRenewalT1       = 0x3a
	dhcpOptRebindingT2     = 0x3b
	dhcpOptVendorClass     = 0x3c
	dhcpOptClientID        = 0x3d
	dhcpOptClientFQDN      = 0x51
	dhcpOptVendorInfo      = 0x2b
	dhcpMagicOffset        = 0xec
)

type dhcpLayer struct {
	options map[uint8][]byte
}

// decodeDHCP parses the BOOTP magic cookie at offset 0xec and the option
// list that follows it (type u8, length u8, value bytes) until 0xff
// (§4.1).
func decodeDHCP(buf []byte) (*dhcpLayer, bool) {
	if len(buf) < dhcpMagicOffset+4 {
		return nil, false
	}
	cookie := binary.BigEndian.Uint32(buf[dhcpMagicOffset : dhcpMagicOffset+4])
	if cookie != 0x63825363 {
		return nil, false
	}
	d := &dhcpLayer{options: make(map[uint8][]byte)}
	off := dhcpMagicOffset + 4
	for off < len(buf) {
		code := buf[off]
		if code == 0xff {
			break
		}
		if code == 0x00 { // pad
			off++
			continue
		}
		if off+1 >= len(buf) {
			break
		}
		length := int(buf[off+1])
		off += 2
		if off+length > len(buf) {
			break
		}
		d.options[code] = append([]byte(nil), buf[off:off+length]...)
		off += length
	}
	return d, true
}

func (d *dhcpLayer) GetField(name string) (field.Field, bool) {
	switch name {
	case "message_type":
		return d.byteOpt("dhcp.message_type", dhcpOptMessageType)
	case "client_id":
		return d.bytesOpt("dhcp.client_id", dhcpOptClientID)
	case "hostname":
		return d.strOpt("dhcp.hostname", dhcpOptHostname)
	case "client_fqdn":
		return d.strOpt("dhcp.client_fqdn", dhcpOptClientFQDN)
	case "vendor_class":
		return d.strOpt("dhcp.vendor_class", dhcpOptVendorClass)
	case "param_request_list":
		return d.bytesOpt("dhcp.param_request_list", dhcpOptParamRequest)
	case "server_id":
		return d.ipOpt("dhcp.server_id", dhcpOptServerID)
	case "subnet_mask":
		return d.ipOpt("dhcp.subnet_mask", dhcpOptSubnetMask)
	case "vendor_info":
		return d.bytesOpt("dhcp.vendor_info", dhcpOptVendorInfo)
	case "router":
		return d.ipOpt("dhcp.router", dhcpOptRouter)
	case "dns_servers":
		return d.bytesOpt("dhcp.dns_servers", dhcpOptDNSServers)
	case "domain_name":
		return d.strOpt("dhcp.domain_name", dhcpOptDomainName)
	case "renewal":
		return d.u32Opt("dhcp.renewal", dhcpOptRenewalT1)
	case "rebinding":
		return d.u32Opt("dhcp.rebinding", dhcpOptRebindingT2)
	case "lease_time":
		return d.u32Opt("dhcp.lease_time", dhcpOptLeaseTime)
	case "requested_ip":
		return d.ipOpt("dhcp.requested_ip", dhcpOptRequestedIP)
	default:
		return field.Field{}, false
	}
}

func (d *dhcpLayer) byteOpt(name string, code uint8) (field.Field, bool) {
	v, ok := d.options[code]
	if !ok || len(v) < 1 {
		return field.Field{}, false
	}
	return field.NewInt8(name, int8(v[0])), true
}

func (d *dhcpLayer) bytesOpt(name string, code uint8) (field.Field, bool) {
	v, ok := d.options[code]
	if !ok {
		return field.Field{}, false
	}
	return field.NewByteArray(name, v), true
}

func (d *dhcpLayer) strOpt(name string, code uint8) (field.Field, bool) {
	v, ok := d.options[code]
	if !ok {
		return field.Field{}, false
	}
	return field.NewString(name, string(v)), true
}

func (d *dhcpLayer) ipOpt(name string, code uint8) (field.Field, bool) {
	v, ok := d.options[code]
	if !ok || len(v) < 4 {
		return field.Field{}, false
	}
	return field.NewIPv4(name, binary.BigEndian.Uint32(v[:4]), 32), true
}

func (d *dhcpLayer) u32Opt(name string, code uint8) (field.Field, bool) {
	v, ok := d.options[code]
	if !ok || len(v) < 4 {
		return field.Field{}, false
	}
	return field.NewInt32(name, int32(binary.BigEndian.Uint32(v[:4]))), true
}
