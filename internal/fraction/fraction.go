// Package fraction implements exact rational arithmetic for frame rates,
// timebases, and pixel ratios.
package fraction

import "math"

// Fraction represents a ratio num/den. The zero value is not meaningful;
// use New or NewReduced to construct one.
type Fraction struct {
	Num int
	Den int
}

// New returns a Fraction without reducing it.
func New(num, den int) Fraction {
	return Fraction{Num: num, Den: den}
}

// GreatestCommonDenominator returns gcd(Num, Den) via Euclid's algorithm.
func (f Fraction) GreatestCommonDenominator() int {
	a, b := f.Num, f.Den
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Reduce returns this fraction reduced to its smallest whole-number terms
// (e.g. 640/480 -> 4/3).
func (f Fraction) Reduce() Fraction {
	gcd := f.GreatestCommonDenominator()
	if gcd == 0 {
		return f
	}
	return Fraction{Num: f.Num / gcd, Den: f.Den / gcd}
}

// ToFloat32 returns this fraction as a float32 (i.e. 1/2 = 0.5).
func (f Fraction) ToFloat32() float32 {
	return float32(f.Num) / float32(f.Den)
}

// ToFloat64 returns this fraction as a float64 (i.e. 1/2 = 0.5).
func (f Fraction) ToFloat64() float64 {
	return float64(f.Num) / float64(f.Den)
}

// ToInt returns a rounded integer of the fraction (e.g. 30000/1001 -> 30).
func (f Fraction) ToInt() int {
	return int(math.Round(float64(f.Num) / float64(f.Den)))
}

// Reciprocal returns the flipped fraction (den/num).
func (f Fraction) Reciprocal() Fraction {
	return Fraction{Num: f.Den, Den: f.Num}
}
