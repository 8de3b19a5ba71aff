package color

import "testing"

func TestFloatToByte(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{0, 0},
		{1, 255},
		{0.5, 128},
		{-0.2, 0},
		{1.5, 255},
		{1.0 / 255.0, 1},
		{254.0 / 255.0, 254},
	}

	for _, tt := range tests {
		if got := FloatToByte(tt.in); got != tt.want {
			t.Errorf("FloatToByte(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestByteRoundTrip(t *testing.T) {
	for b := 0; b <= 255; b++ {
		if got := FloatToByte(ByteToFloat(uint8(b))); got != uint8(b) {
			t.Errorf("FloatToByte(ByteToFloat(%d)) = %d", b, got)
		}
	}
}

func TestColorBytes(t *testing.T) {
	if got := Yellow.Bytes(); got != [4]uint8{255, 255, 0, 255} {
		t.Errorf("Yellow.Bytes() = %v", got)
	}
	if got := FromBytes(White.Bytes()); got != White {
		t.Errorf("FromBytes(White.Bytes()) = %v, want %v", got, White)
	}
}

func TestWithAlpha(t *testing.T) {
	c := White.WithAlpha(0.5)
	if c.R != 1 || c.G != 1 || c.B != 1 || c.A != 0.5 {
		t.Errorf("WithAlpha(0.5) = %+v", c)
	}
}

func TestString(t *testing.T) {
	if got := Red.String(); got != "rgba(255, 0, 0, 255)" {
		t.Errorf("Red.String() = %q", got)
	}
}
