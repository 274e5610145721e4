package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{"", 10, 10},
		{"x", 5, 5},
		{"-3", 0, -3},
		{"3.5", 7, 7},
	}
	for _, c := range cases {
		if got := AtoiDefault(c.in, c.def); got != c.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}

func TestParseInt64Default(t *testing.T) {
	cases := []struct {
		in   string
		def  int64
		want int64
	}{
		{"1700000000000", 0, 1700000000000},
		{"", 99, 99},
		{"later", 7, 7},
		{"-1", 0, -1},
	}
	for _, c := range cases {
		if got := ParseInt64Default(c.in, c.def); got != c.want {
			t.Fatalf("ParseInt64Default(%q, %d) = %d, want %d", c.in, c.def, got, c.want)
		}
	}
}
