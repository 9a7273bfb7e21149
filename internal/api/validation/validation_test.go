package validation

import (
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@example.co.ke",
		"user+tag@example.org",
	}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}

	invalid := []string{
		"",
		"not-an-email",
		"@example.com",
		"user@",
		"user@nodot",
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	if !IsValidUUID("b9a9045e-08c9-4f27-b1f9-d63390cd2b35") {
		t.Error("expected valid UUID to pass")
	}
	if IsValidUUID("not-a-uuid") {
		t.Error("expected invalid UUID to fail")
	}
	if IsValidUUID("") {
		t.Error("expected empty string to fail")
	}
}

func TestIsValidPassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Password1", true},
		{"Sh0rt", false},                 // too short
		{"alllowercase1", false},         // no uppercase
		{"ALLUPPERCASE1", false},         // no lowercase
		{"NoNumbersHere", false},         // no digit
		{"Perfectly4Fine", true},
	}

	for _, tt := range tests {
		ok, msg := IsValidPassword(tt.password)
		if ok != tt.valid {
			t.Errorf("IsValidPassword(%q) = %v (%s), want %v", tt.password, ok, msg, tt.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	got := SanitizeString("hello\x00world")
	if got != "helloworld" {
		t.Errorf("expected null byte removed, got %q", got)
	}

	got = SanitizeString("line1\nline2\tok")
	if got != "line1\nline2\tok" {
		t.Errorf("expected newlines and tabs kept, got %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("abcdef", 3); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
	if got := TruncateString("ab", 3); got != "ab" {
		t.Errorf("expected ab, got %q", got)
	}
}
