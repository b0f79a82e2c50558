package password

import (
	"errors"
	"testing"

	"github.com/kozaktomas/facegate/internal/config"
)

func TestStrength(t *testing.T) {
	tests := []struct {
		pw    string
		score int
		level Level
	}{
		{"", 0, Weak},
		{"abc", 0, Weak},
		{"abcdefgh", 25, Weak},
		{"Abcdefgh", 45, Medium},
		{"Abcdefgh1", 60, Medium},
		{"Abcdefgh1!", 75, Strong},
		{"Abcdefghijk1!", 100, Strong},
		{"abcdefghijkl", 50, Medium},
		{"12345678", 40, Weak},
		{"!!!!!!!!1", 55, Medium},
		{"Ab1!", 50, Medium},
	}

	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			got := Strength(tt.pw)
			if got.Score != tt.score {
				t.Errorf("Strength(%q).Score = %d, want %d", tt.pw, got.Score, tt.score)
			}
			if got.Level != tt.level {
				t.Errorf("Strength(%q).Level = %s, want %s", tt.pw, got.Level, tt.level)
			}
		})
	}
}

func TestStrength_CountsRunes(t *testing.T) {
	// Seven multi-byte runes are still below the minimum length.
	got := Strength("ééééééé")
	if got.Score != 0 {
		t.Errorf("expected 0 for 7 non-ASCII runes, got %d", got.Score)
	}
	got = Strength("éééééééé")
	if got.Score != 25 {
		t.Errorf("expected 25 for 8 runes, got %d", got.Score)
	}
}

func TestStrength_Feedback(t *testing.T) {
	if got := Strength("Abcdefghijk1!"); len(got.Feedback) != 0 {
		t.Errorf("expected no feedback for a perfect password, got %v", got.Feedback)
	}
	if got := Strength(""); len(got.Feedback) != 4 {
		t.Errorf("expected 4 feedback items for empty password, got %v", got.Feedback)
	}
}

func TestValidate(t *testing.T) {
	rules := DefaultRules()

	if errs := rules.Validate("Abcdefg1!"); errs != nil {
		t.Errorf("expected valid password, got %v", errs)
	}

	errs := rules.Validate("abc")
	want := []error{ErrTooShort, ErrMissingUpper, ErrMissingNumber, ErrMissingSpecial}
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), errs)
	}
	for i := range want {
		if !errors.Is(errs[i], want[i]) {
			t.Errorf("error %d = %v, want %v", i, errs[i], want[i])
		}
	}
}

func TestValidate_RelaxedRules(t *testing.T) {
	rules := DefaultRules()
	rules.RequireSpecial = false
	rules.RequireUppercase = false

	if errs := rules.Validate("abcdefg1"); errs != nil {
		t.Errorf("expected valid password with relaxed rules, got %v", errs)
	}
}

func TestRulesFromConfig(t *testing.T) {
	rules := RulesFromConfig(config.Load().Password)
	if rules != DefaultRules() {
		t.Errorf("config defaults should match built-in rules:\n%+v\n%+v", rules, DefaultRules())
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@domain.com", true},
		{"a.b+c@sub.domain.org", true},
		{"user@domain", false},
		{"user domain@x.com", false},
		{"@domain.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.email); got != tt.valid {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
		}
	}
}

func TestValidName(t *testing.T) {
	if ValidName("  Al ") {
		t.Error("two characters after trim should be invalid")
	}
	if !ValidName("Ana") {
		t.Error("three characters should be valid")
	}
	if !ValidName("Žoë") {
		t.Error("non-ASCII names count runes")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Alice  ", "Alice"},
		{"<script>alert(1)</script>", "scriptalert(1)/script"},
		{"JavaScript:alert(1)", "alert(1)"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
