package pivot

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"fire mode", "fire_mode"},
		{"grade", "grade"},
		{"_leading", "_leading"},
		{"kg/m2", "kg_m2"},
		{"max temp (C)", "max_temp__C_"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.expected {
			t.Errorf("Normalize(%q) = %q, expected %q", tc.in, got, tc.expected)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"grade", "_x", "a1_b2", "A"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("expected %q to be a valid identifier", s)
		}
	}

	invalid := []string{"", "1abc", "fire mode", "a-b", "käse"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}
