package internal

import (
	"bytes"
	"fmt"
	"strings"
)

// InstrumentType is the ANBIMA bond type code (tipo_titulo).
type InstrumentType string

const (
	LTN  InstrumentType = "LTN"
	LFT  InstrumentType = "LFT"
	NTNB InstrumentType = "NTN-B"
	NTNC InstrumentType = "NTN-C"
	NTNF InstrumentType = "NTN-F"
)

var supportedSet = map[InstrumentType]struct{}{
	LTN: {}, LFT: {}, NTNB: {}, NTNC: {}, NTNF: {},
}

// NewInstrumentType validates configured instrument codes. Vendor records
// keep whatever code the feed carries, supported or not.
func NewInstrumentType(s string) (InstrumentType, error) {
	it := InstrumentType(strings.ToUpper(strings.TrimSpace(s)))
	if !it.IsSupported() {
		return "", fmt.Errorf("unsupported instrument type %q", s)
	}
	return it, nil
}

func (t InstrumentType) IsSupported() bool {
	_, ok := supportedSet[t]
	return ok
}

func (t InstrumentType) String() string { return string(t) }

func (t InstrumentType) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

func (t *InstrumentType) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := strings.Trim(string(b), "\"")
	*t = InstrumentType(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}
