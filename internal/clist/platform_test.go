package clist

import "testing"

func TestNormalizePlatform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "codeforces.com", want: "Codeforces"},
		{in: "CodeChef.com", want: "CodeChef"},
		{in: "leetcode.com", want: "LeetCode"},
		{in: "https://www.atcoder.jp/", want: "Atcoder.jp"},
		{in: "www.topcoder.com", want: "Topcoder"},
		{in: "", want: "Unknown"},
		{in: "N/A", want: "Unknown"},
		{in: ".com", want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePlatform(tt.in); got != tt.want {
				t.Errorf("NormalizePlatform(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
