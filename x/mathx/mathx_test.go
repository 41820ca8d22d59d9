package mathx

import (
	"testing"
	"time"
)

func TestClampAndBetween(t *testing.T) {
	if Clamp(300, 0, 255) != 255 || Clamp(-4, 0, 255) != 0 || Clamp(9, 255, 0) != 9 {
		t.Fatal("clamp failed")
	}
	if Clamp(time.Minute, 50*time.Microsecond, time.Second) != time.Second {
		t.Fatal("clamp duration failed")
	}
	if !Between(uint16(5), 10, 1) || Between(11, 1, 10) {
		t.Fatal("between failed")
	}
}

func TestIntDiv(t *testing.T) {
	if FloorDiv[uint32](12_000_000, 16*9600) != 78 {
		t.Fatalf("FloorDiv = %d", FloorDiv[uint32](12_000_000, 16*9600))
	}
	if RoundDiv[uint](7, 2) != 4 || RoundDiv[uint](5, 4) != 1 || RoundDiv[uint32](12_000_000, 16*78) != 9615 {
		t.Fatal("round failed")
	}
	if FloorDiv[uint8](9, 0) != 0 || RoundDiv[uint8](9, 0) != 0 {
		t.Fatal("divide by zero not guarded")
	}
}
