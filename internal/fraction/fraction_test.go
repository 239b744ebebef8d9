package fraction

import "testing"

func TestReduce(t *testing.T) {
	cases := []struct {
		in       Fraction
		wantNum  int
		wantDen  int
	}{
		{New(640, 480), 4, 3},
		{New(30000, 1001), 30000, 1001},
		{New(48000, 1600), 30, 1},
	}
	for _, c := range cases {
		got := c.in.Reduce()
		if got.Num != c.wantNum || got.Den != c.wantDen {
			t.Errorf("New(%d,%d).Reduce() = %d/%d, want %d/%d", c.in.Num, c.in.Den, got.Num, got.Den, c.wantNum, c.wantDen)
		}
	}
}

func TestToFloat64(t *testing.T) {
	f := New(1, 2)
	if f.ToFloat64() != 0.5 {
		t.Errorf("ToFloat64() = %v, want 0.5", f.ToFloat64())
	}
}

func TestToInt(t *testing.T) {
	f := New(30000, 1001)
	if got := f.ToInt(); got != 30 {
		t.Errorf("ToInt() = %d, want 30", got)
	}
}

func TestReciprocal(t *testing.T) {
	f := New(30000, 1001)
	r := f.Reciprocal()
	if r.Num != 1001 || r.Den != 30000 {
		t.Errorf("Reciprocal() = %d/%d, want 1001/30000", r.Num, r.Den)
	}
}

func TestGreatestCommonDenominator(t *testing.T) {
	if got := New(48, 18).GreatestCommonDenominator(); got != 6 {
		t.Errorf("gcd(48,18) = %d, want 6", got)
	}
}
