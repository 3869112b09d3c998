package sdr

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		name  string
		want  Format
		width int
		wire  string
	}{
		{"short", FormatShort, 4, "sc16"},
		{"float", FormatFloat, 8, "fc32"},
		{"double", FormatDouble, 16, "fc64"},
		{"SHORT", FormatShort, 4, "sc16"},
	}
	for _, c := range cases {
		got, err := ParseFormat(c.name)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %s", c.name, err)
		}
		if got != c.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", c.name, got, c.want)
		}
		if got.ByteWidth() != c.width {
			t.Errorf("%v.ByteWidth() = %d, want %d", got, got.ByteWidth(), c.width)
		}
		if got.Wire() != c.wire {
			t.Errorf("%v.Wire() = %q, want %q", got, got.Wire(), c.wire)
		}
	}

	if _, err := ParseFormat("int8"); err == nil {
		t.Fatalf("ParseFormat(int8) succeeded, want error")
	}
}

func TestFormatPut(t *testing.T) {
	buf := make([]byte, FormatDouble.ByteWidth())

	FormatShort.Put(buf, 1, -1)
	if i := int16(binary.LittleEndian.Uint16(buf)); i != math.MaxInt16 {
		t.Errorf("short I = %d, want %d", i, math.MaxInt16)
	}
	if q := int16(binary.LittleEndian.Uint16(buf[2:])); q != -math.MaxInt16 {
		t.Errorf("short Q = %d, want %d", q, -math.MaxInt16)
	}

	FormatShort.Put(buf, 2, -2)
	if i := int16(binary.LittleEndian.Uint16(buf)); i != math.MaxInt16 {
		t.Errorf("short I not clamped: %d", i)
	}

	FormatFloat.Put(buf, 0.5, -0.25)
	if i := math.Float32frombits(binary.LittleEndian.Uint32(buf)); i != 0.5 {
		t.Errorf("float I = %f, want 0.5", i)
	}
	if q := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])); q != -0.25 {
		t.Errorf("float Q = %f, want -0.25", q)
	}

	FormatDouble.Put(buf, 0.125, 0.75)
	if i := math.Float64frombits(binary.LittleEndian.Uint64(buf)); i != 0.125 {
		t.Errorf("double I = %f, want 0.125", i)
	}
	if q := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])); q != 0.75 {
		t.Errorf("double Q = %f, want 0.75", q)
	}
}

func TestErrorCodeString(t *testing.T) {
	if got := ErrorCodeOverflow.String(); got != "overflow" {
		t.Errorf("ErrorCodeOverflow.String() = %q", got)
	}
	if got := ErrorCode(0x42).String(); got != "0x42" {
		t.Errorf("ErrorCode(0x42).String() = %q", got)
	}
}
