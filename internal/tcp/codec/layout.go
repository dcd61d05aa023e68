package codec

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"

	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/static/errs"
)

// RecordLayout describes how one worker record is laid out inside a
// MsgWorkerList payload. The layout changed between coordinator protocol
// versions, so the decoder picks it from the negotiated version.
type RecordLayout struct {
	Version uint32
	Name    string

	decode func(c *cursor) (*domain.WorkerRecord, bool)
	encode func(b []byte, w *domain.WorkerRecord) []byte
}

// LayoutV22 is the layout sent by protocol 22 coordinators:
//
//	string version, string user, string hostName, string domainName, string mode,
//	uint32 cpusUsed, uint32 cpusTotal, uint32 memoryMiB, [4]byte ipv4
var LayoutV22 = RecordLayout{
	Version: 22,
	Name:    "v22",
	decode:  decodeV22,
	encode:  encodeV22,
}

// LayoutV21 is the older variant without a domain name and with the mode
// carried as a uint32 enum:
//
//	string version, string user, string hostName, uint32 mode,
//	uint32 cpusUsed, uint32 cpusTotal, uint32 memoryMiB, [4]byte ipv4
var LayoutV21 = RecordLayout{
	Version: 21,
	Name:    "v21",
	decode:  decodeV21,
	encode:  encodeV21,
}

var layouts = map[uint32]RecordLayout{
	LayoutV21.Version: LayoutV21,
	LayoutV22.Version: LayoutV22,
}

// LayoutFor returns the record layout for a protocol version.
func LayoutFor(version uint32) (RecordLayout, error) {
	l, ok := layouts[version]
	if !ok {
		return RecordLayout{}, fmt.Errorf("%w: protocol version %d", errs.ErrUnsupportedLayout, version)
	}
	return l, nil
}

func decodeV22(c *cursor) (*domain.WorkerRecord, bool) {
	version, ok := c.string()
	if !ok {
		return nil, false
	}
	user, ok := c.string()
	if !ok {
		return nil, false
	}
	host, ok := c.string()
	if !ok {
		return nil, false
	}
	domainName, ok := c.string()
	if !ok {
		return nil, false
	}
	mode, ok := c.string()
	if !ok {
		return nil, false
	}
	w := &domain.WorkerRecord{
		Version:    version,
		User:       user,
		HostName:   host,
		DomainName: domainName,
		Mode:       mode,
	}
	if !decodeCapacity(c, w) {
		return nil, false
	}
	return w, true
}

func decodeV21(c *cursor) (*domain.WorkerRecord, bool) {
	version, ok := c.string()
	if !ok {
		return nil, false
	}
	user, ok := c.string()
	if !ok {
		return nil, false
	}
	host, ok := c.string()
	if !ok {
		return nil, false
	}
	mode, ok := c.uint32()
	if !ok {
		return nil, false
	}
	w := &domain.WorkerRecord{
		Version:  version,
		User:     user,
		HostName: host,
		Mode:     domain.WorkerMode(mode).String(),
	}
	if !decodeCapacity(c, w) {
		return nil, false
	}
	return w, true
}

// decodeCapacity reads the fixed tail shared by both layouts.
func decodeCapacity(c *cursor, w *domain.WorkerRecord) bool {
	used, ok := c.uint32()
	if !ok {
		return false
	}
	total, ok := c.uint32()
	if !ok {
		return false
	}
	mem, ok := c.uint32()
	if !ok {
		return false
	}
	ip, ok := c.ipv4()
	if !ok {
		return false
	}
	w.CPUs = fmt.Sprintf("%d/%d", used, total)
	w.Memory = strconv.FormatUint(uint64(mem), 10)
	w.IPv4Address = ip
	return true
}

func encodeV22(b []byte, w *domain.WorkerRecord) []byte {
	b = appendString(b, w.Version)
	b = appendString(b, w.User)
	b = appendString(b, w.HostName)
	b = appendString(b, w.DomainName)
	b = appendString(b, w.Mode)
	return appendCapacity(b, w)
}

func encodeV21(b []byte, w *domain.WorkerRecord) []byte {
	b = appendString(b, w.Version)
	b = appendString(b, w.User)
	b = appendString(b, w.HostName)
	b = binary.LittleEndian.AppendUint32(b, uint32(modeFromString(w.Mode)))
	return appendCapacity(b, w)
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendCapacity(b []byte, w *domain.WorkerRecord) []byte {
	var used, total uint32
	fmt.Sscanf(w.CPUs, "%d/%d", &used, &total)
	mem, _ := strconv.ParseUint(w.Memory, 10, 32)
	b = binary.LittleEndian.AppendUint32(b, used)
	b = binary.LittleEndian.AppendUint32(b, total)
	b = binary.LittleEndian.AppendUint32(b, uint32(mem))
	ip := [4]byte{}
	if addr, err := netip.ParseAddr(w.IPv4Address); err == nil && addr.Is4() {
		ip = addr.As4()
	}
	return append(b, ip[:]...)
}

func modeFromString(s string) domain.WorkerMode {
	for m := domain.WorkerModeDisabled; m <= domain.WorkerModeWorkProportional; m++ {
		if m.String() == s {
			return m
		}
	}
	return domain.WorkerModeDisabled
}
