package service

import (
	"testing"
	"time"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"1m":  time.Minute,
		"15m": 15 * time.Minute,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseIntervalDuration(in)
		if err != nil {
			t.Fatalf("ParseIntervalDuration(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseIntervalDuration(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "m", "0m", "-1h", "1y", "abc"} {
		if _, err := ParseIntervalDuration(in); err == nil {
			t.Fatalf("ParseIntervalDuration(%q) accepted invalid input", in)
		}
	}
}

func TestFormatInterval(t *testing.T) {
	cases := map[time.Duration]string{
		30 * time.Second: "30s",
		time.Minute:      "1m",
		4 * time.Hour:    "4h",
	}
	for in, want := range cases {
		if got := FormatInterval(in); got != want {
			t.Fatalf("FormatInterval(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestStringToFloat(t *testing.T) {
	v, err := StringToFloat("42.5")
	if err != nil || v != 42.5 {
		t.Fatalf("StringToFloat = %v, %v", v, err)
	}
	if _, err := StringToFloat("nope"); err == nil {
		t.Fatal("StringToFloat accepted garbage")
	}
}
