package core

import "testing"

func TestDateOrdering(t *testing.T) {
	a := NewDate(2020, 1, 31)
	b := NewDate(2020, 2, 1)
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("%s should sort before %s", a, b)
	}
	if !b.After(a) {
		t.Fatalf("%s should sort after %s", b, a)
	}
	if !a.Equal(NewDate(2020, 1, 31)) {
		t.Fatal("identical dates should be equal")
	}
}

func TestAddDays(t *testing.T) {
	cases := []struct {
		in   Date
		days int
		want Date
	}{
		{NewDate(2020, 1, 1), 1, NewDate(2020, 1, 2)},
		{NewDate(2020, 1, 31), 1, NewDate(2020, 2, 1)},
		{NewDate(2020, 2, 28), 1, NewDate(2020, 2, 29)}, // leap year
		{NewDate(2019, 12, 31), 1, NewDate(2020, 1, 1)},
		{NewDate(2020, 1, 8), -7, NewDate(2020, 1, 1)},
	}
	for _, tc := range cases {
		if got := tc.in.AddDays(tc.days); !got.Equal(tc.want) {
			t.Fatalf("%s + %d days = %s, want %s", tc.in, tc.days, got, tc.want)
		}
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	cases := []struct {
		in     Date
		months int
		want   Date
	}{
		{NewDate(2020, 1, 15), 1, NewDate(2020, 2, 15)},
		{NewDate(2020, 1, 31), 1, NewDate(2020, 2, 29)},
		{NewDate(2019, 1, 31), 1, NewDate(2019, 2, 28)},
		{NewDate(2020, 12, 15), 1, NewDate(2021, 1, 15)},
		{NewDate(2020, 3, 31), -1, NewDate(2020, 2, 29)},
		{NewDate(2020, 1, 15), -1, NewDate(2019, 12, 15)},
		{NewDate(2020, 1, 15), -13, NewDate(2018, 12, 15)},
	}
	for _, tc := range cases {
		if got := tc.in.AddMonths(tc.months); !got.Equal(tc.want) {
			t.Fatalf("%s + %d months = %s, want %s", tc.in, tc.months, got, tc.want)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	a := NewDate(2020, 1, 1)
	if got := a.DaysUntil(NewDate(2020, 1, 11)); got != 10 {
		t.Fatalf("DaysUntil = %d, want 10", got)
	}
	if got := a.DaysUntil(NewDate(2019, 12, 31)); got != -1 {
		t.Fatalf("DaysUntil = %d, want -1", got)
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2020, 2, 30).Validate(); err == nil {
		t.Fatal("Feb 30 should not validate")
	}
	if err := NewDate(2020, 13, 1).Validate(); err == nil {
		t.Fatal("month 13 should not validate")
	}
	if err := (Date{}).Validate(); err == nil {
		t.Fatal("zero date should not validate")
	}
	if err := NewDate(2020, 2, 29).Validate(); err != nil {
		t.Fatalf("leap day should validate: %v", err)
	}
}
