package sdr

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Format is the fixed-width complex sample encoding written to the sinks.
type Format int

const (
	FormatShort  Format = iota // sc16: two int16
	FormatFloat                // fc32: two float32
	FormatDouble               // fc64: two float64
)

// ParseFormat accepts the sample type names short, float and double.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "short":
		return FormatShort, nil
	case "float":
		return FormatFloat, nil
	case "double":
		return FormatDouble, nil
	}
	return 0, fmt.Errorf("unknown sample type %q, pick one of: short, float, double", name)
}

func (f Format) String() string {
	switch f {
	case FormatShort:
		return "short"
	case FormatFloat:
		return "float"
	case FormatDouble:
		return "double"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Wire returns the host-side encoding name, e.g. "sc16".
func (f Format) Wire() string {
	switch f {
	case FormatShort:
		return "sc16"
	case FormatFloat:
		return "fc32"
	case FormatDouble:
		return "fc64"
	}
	return ""
}

// ByteWidth is the size of one complex sample in bytes.
func (f Format) ByteWidth() int {
	switch f {
	case FormatShort:
		return 4
	case FormatFloat:
		return 8
	case FormatDouble:
		return 16
	}
	return 0
}

// Put encodes one complex sample with components normalized to [-1, 1]
// little endian into dst, which must hold at least ByteWidth bytes.
func (f Format) Put(dst []byte, i, q float64) {
	switch f {
	case FormatShort:
		binary.LittleEndian.PutUint16(dst[0:], uint16(toInt16(i)))
		binary.LittleEndian.PutUint16(dst[2:], uint16(toInt16(q)))
	case FormatFloat:
		binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(float32(i)))
		binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(float32(q)))
	case FormatDouble:
		binary.LittleEndian.PutUint64(dst[0:], math.Float64bits(i))
		binary.LittleEndian.PutUint64(dst[8:], math.Float64bits(q))
	}
}

func toInt16(v float64) int16 {
	v = math.Round(v * math.MaxInt16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
