package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{" 7 ", 0, 7},
		{"", 10, 10},
		{"x", 5, 5},
		{"-3", 1, -3},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.in, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q,%d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestPage(t *testing.T) {
	cases := []struct {
		page, size string
		wp, ws     int
	}{
		{"", "", DefaultPage, DefaultPageSize},
		{"3", "5", 3, 5},
		{"0", "-1", DefaultPage, DefaultPageSize},
		{"abc", "1000", DefaultPage, MaxPageSize},
	}
	for _, tc := range cases {
		p, s := Page(tc.page, tc.size)
		if p != tc.wp || s != tc.ws {
			t.Fatalf("Page(%q,%q) = %d,%d want %d,%d", tc.page, tc.size, p, s, tc.wp, tc.ws)
		}
	}
}
