// Package password scores password strength and validates registration input.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kozaktomas/facegate/internal/config"
)

// Level is a coarse password strength bucket.
type Level string

const (
	Weak   Level = "weak"
	Medium Level = "medium"
	Strong Level = "strong"
)

// Score points per satisfied criterion.
const (
	pointsMinLength    = 25
	pointsStrongLength = 25
	pointsMixedCase    = 20
	pointsDigit        = 15
	pointsSpecial      = 15
)

// Rules configures validation and strength scoring.
type Rules struct {
	MinLength        int
	StrongLength     int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
	SpecialChars     string
	WeakMax          int
	MediumMax        int
}

// DefaultRules returns the built-in rules.
func DefaultRules() Rules {
	return Rules{
		MinLength:        8,
		StrongLength:     12,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSpecial:   true,
		SpecialChars:     `!@#$%^&*(),.?":{}|<>`,
		WeakMax:          40,
		MediumMax:        70,
	}
}

// RulesFromConfig converts the configured password section to Rules.
func RulesFromConfig(c config.PasswordConfig) Rules {
	return Rules{
		MinLength:        c.MinLength,
		StrongLength:     c.StrongLength,
		RequireUppercase: c.RequireUppercase,
		RequireLowercase: c.RequireLowercase,
		RequireNumber:    c.RequireNumber,
		RequireSpecial:   c.RequireSpecial,
		SpecialChars:     c.SpecialChars,
		WeakMax:          c.WeakMax,
		MediumMax:        c.MediumMax,
	}
}

// Result is the outcome of a strength check.
type Result struct {
	Level    Level    `json:"strength"`
	Score    int      `json:"score"`
	Feedback []string `json:"feedback"`
}

type classes struct {
	upper, lower, digit, special bool
}

func classify(pw, specials string) classes {
	var c classes
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		case strings.ContainsRune(specials, r):
			c.special = true
		}
	}
	return c
}

// Strength scores pw with the default rules.
func Strength(pw string) Result {
	return DefaultRules().Strength(pw)
}

// Strength scores pw. Length is counted in runes. Letters, digits and
// specials are matched as ASCII only.
func (rules Rules) Strength(pw string) Result {
	res := Result{Feedback: []string{}}
	length := utf8.RuneCountInString(pw)
	c := classify(pw, rules.SpecialChars)

	if length >= rules.MinLength {
		res.Score += pointsMinLength
	} else {
		res.Feedback = append(res.Feedback, fmt.Sprintf("Use at least %d characters", rules.MinLength))
	}
	if length >= rules.StrongLength {
		res.Score += pointsStrongLength
	}
	if c.upper && c.lower {
		res.Score += pointsMixedCase
	} else {
		res.Feedback = append(res.Feedback, "Mix upper and lower case letters")
	}
	if c.digit {
		res.Score += pointsDigit
	} else {
		res.Feedback = append(res.Feedback, "Add a number")
	}
	if c.special {
		res.Score += pointsSpecial
	} else {
		res.Feedback = append(res.Feedback, "Add a special character")
	}

	switch {
	case res.Score <= rules.WeakMax:
		res.Level = Weak
	case res.Score <= rules.MediumMax:
		res.Level = Medium
	default:
		res.Level = Strong
	}
	return res
}

// Validation errors
var (
	ErrTooShort       = errors.New("password is too short")
	ErrMissingUpper   = errors.New("password must contain an uppercase letter")
	ErrMissingLower   = errors.New("password must contain a lowercase letter")
	ErrMissingNumber  = errors.New("password must contain a number")
	ErrMissingSpecial = errors.New("password must contain a special character")
)

// Validate returns every rule pw violates. A nil result means the password is acceptable.
func (rules Rules) Validate(pw string) []error {
	var errs []error
	c := classify(pw, rules.SpecialChars)

	if utf8.RuneCountInString(pw) < rules.MinLength {
		errs = append(errs, fmt.Errorf("%w: minimum %d characters", ErrTooShort, rules.MinLength))
	}
	if rules.RequireUppercase && !c.upper {
		errs = append(errs, ErrMissingUpper)
	}
	if rules.RequireLowercase && !c.lower {
		errs = append(errs, ErrMissingLower)
	}
	if rules.RequireNumber && !c.digit {
		errs = append(errs, ErrMissingNumber)
	}
	if rules.RequireSpecial && !c.special {
		errs = append(errs, ErrMissingSpecial)
	}
	return errs
}
