package display

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
)

// https://en.wikipedia.org/wiki/Extended_Display_Identification_Data

var edidHeader = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// Some errors.
var (
	ErrBadEDID   = errors.New("bad edid header")
	ErrShortEDID = errors.New("edid too short")
)

// EDID contains the identifying information from a monitor's EDID.
type EDID struct {
	Vendor  string // 3-letter PNP ID
	Product [2]byte
	Serial  [4]byte
	Name    string // from the display name descriptor, if any
}

// ParseEDID parses the base EDID block.
func ParseEDID(buf []byte) (EDID, error) {
	var e EDID
	if len(buf) < 16 {
		return e, ErrShortEDID
	}
	if !bytes.HasPrefix(buf, edidHeader) {
		return e, ErrBadEDID
	}
	vnd := binary.BigEndian.Uint16(buf[8:10])
	e.Vendor = string([]byte{
		'A' - 1 + byte(0b11111&(vnd>>(5*2))),
		'A' - 1 + byte(0b11111&(vnd>>(5*1))),
		'A' - 1 + byte(0b11111&(vnd>>(5*0))),
	})
	copy(e.Product[:], buf[10:12])
	copy(e.Serial[:], buf[12:16])

	// 4 18-byte descriptors starting at 54
	for off := 54; off+18 <= len(buf) && off < 126; off += 18 {
		d := buf[off : off+18]
		if d[0] != 0 || d[1] != 0 || d[2] != 0 {
			continue // detailed timing
		}
		if d[3] == 0xFC {
			name, _, _ := bytes.Cut(d[5:], []byte{'\n'})
			e.Name = strings.TrimSpace(string(name))
		}
	}
	return e, nil
}

// ID returns the vendor, product code and serial, in the same format as the
// monitor ID used by DDC tools (e.g., DEL40B7-4C303142).
func (e EDID) ID() string {
	const hex = "0123456789ABCDEF"
	b := []byte(e.Vendor)
	for _, x := range e.Product {
		b = append(b, hex[x>>4], hex[x&0xf])
	}
	b = append(b, '-')
	for _, x := range e.Serial {
		b = append(b, hex[x>>4], hex[x&0xf])
	}
	return string(b)
}

// Label returns a human-readable label for the monitor.
func (e EDID) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID()
}
