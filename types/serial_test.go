package types

import (
	"encoding/json"
	"testing"
)

func TestParityParseAndJSON(t *testing.T) {
	for in, want := range map[string]Parity{
		"none": ParityNone, "N": ParityNone,
		"even": ParityEven, "e": ParityEven,
		"odd": ParityOdd, "O": ParityOdd,
	} {
		got, err := ParseParity(in)
		if err != nil || got != want {
			t.Fatalf("ParseParity(%q) = %v,%v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseParity("mark"); err != ErrBadParity {
		t.Fatalf("ParseParity(mark) err = %v", err)
	}

	var v struct {
		P Parity `json:"p"`
	}
	if err := json.Unmarshal([]byte(`{"p":"odd"}`), &v); err != nil || v.P != ParityOdd {
		t.Fatalf("unmarshal: %v %v", v.P, err)
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) != `{"p":"odd"}` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	if err := json.Unmarshal([]byte(`{"p":3}`), &v); err == nil {
		t.Fatal("numeric parity accepted")
	}
	if Parity(7).Valid() || Parity(7).String() != "invalid" {
		t.Fatal("out-of-range parity reported valid")
	}
}

func TestStopBits(t *testing.T) {
	if s, err := ParseStopBits("2"); err != nil || s != StopBits2 {
		t.Fatalf("ParseStopBits(2) = %v,%v", s, err)
	}
	if _, err := ParseStopBits("1.5"); err != ErrBadStopBits {
		t.Fatalf("ParseStopBits(1.5) err = %v", err)
	}
	if StopBits(0).Valid() || StopBits(3).Valid() || !StopBits1.Valid() {
		t.Fatal("stop bit validity wrong")
	}
}
