package money

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"-45.50", "-45.5", true},
		{"0.001", "0.001", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("Parse(%q) = %q, %v; want %q", tc.in, got, err, tc.out)
			}
		} else if err == nil {
			t.Fatalf("Parse(%q) expected error", tc.in)
		}
	}
}

func TestArithmeticIsExact(t *testing.T) {
	// The classic float trap: 0.1 + 0.2 must be exactly 0.3.
	got := MustParse("0.1").Add(MustParse("0.2"))
	if !got.Equal(MustParse("0.3")) {
		t.Fatalf("0.1 + 0.2 = %s, want 0.3", got)
	}

	if got := MustParse("10").Sub(MustParse("0.01")); got.String() != "9.99" {
		t.Fatalf("10 - 0.01 = %s, want 9.99", got)
	}
	if got := MustParse("-12.34").Neg(); got.String() != "12.34" {
		t.Fatalf("Neg(-12.34) = %s, want 12.34", got)
	}
}

func TestSumRoundTrips(t *testing.T) {
	// Many small additions must not drift.
	cents := MustParse("0.01")
	var parts []Amount
	for i := 0; i < 1000; i++ {
		parts = append(parts, cents)
	}
	if got := Sum(parts...); got.String() != "10" {
		t.Fatalf("sum of 1000 cents = %s, want 10", got)
	}
}

func TestScanValue(t *testing.T) {
	var a Amount
	if err := a.Scan("-3.50"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	v, err := a.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "-3.5" {
		t.Fatalf("round-trip = %v, want -3.5", v)
	}

	if err := a.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !a.IsZero() {
		t.Fatalf("Scan(nil) should give zero, got %s", a)
	}

	if err := a.Scan(42); err == nil {
		t.Fatal("Scan(int) should fail")
	}
}
