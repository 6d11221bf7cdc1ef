package domain

import "testing"

func TestTemperatureForScore(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, TemperatureCold},
		{39, TemperatureCold},
		{40, TemperatureWarm},
		{69, TemperatureWarm},
		{70, TemperatureHot},
		{100, TemperatureHot},
	}

	for _, tt := range tests {
		if got := TemperatureForScore(tt.score); got != tt.want {
			t.Errorf("TemperatureForScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNormalizeSource(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cold Call", "cold_call"},
		{"cold_call", "cold_call"},
		{"  Referral  ", "referral"},
		{"Web Form", "web_form"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeSource(tt.in); got != tt.want {
			t.Errorf("NormalizeSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", ""},
		{" Ada ", " Lovelace ", "Ada Lovelace"},
	}

	for _, tt := range tests {
		c := Contact{FirstName: tt.first, LastName: tt.last}
		if got := c.FullName(); got != tt.want {
			t.Errorf("FullName() with %q/%q = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}
