package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Limits applied to poll and account input.
const (
	MaxQuestionLen = 500
	MaxOptionLen   = 200
	MinOptions     = 2
	MaxOptions     = 10
	MaxNameLen     = 100
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

var (
	// Heuristic XSS signatures. This is a blacklist, not an HTML parser:
	// it catches the common cases and the renderer is expected to encode
	// output as the authoritative defense.
	reScriptTag = regexp.MustCompile(`(?i)<script`)
	reJSScheme  = regexp.MustCompile(`(?i)javascript:`)
	reEventAttr = regexp.MustCompile(`(?i)\bon\w+\s*=`)

	// Canonical UUID shape: 8-4-4-4-12 hex groups, case-insensitive.
	reUUID = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	fields = validator.New()
)

// Violations collects every rule an input broke. It implements error; the
// message joins all problems so the caller sees the full list, not just the
// first failure.
type Violations struct {
	Problems []Problem
}

type Problem struct {
	Field   string
	Message string
}

func (v *Violations) add(field, format string, args ...interface{}) {
	v.Problems = append(v.Problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *Violations) Error() string {
	parts := make([]string, 0, len(v.Problems))
	for _, p := range v.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return strings.Join(parts, "; ")
}

// orNil returns nil when no rule was broken so callers can use the usual
// `if err != nil` check.
func (v *Violations) orNil() error {
	if len(v.Problems) == 0 {
		return nil
	}
	return v
}

func hasXSSSignature(s string) bool {
	return reScriptTag.MatchString(s) || reJSScheme.MatchString(s) || reEventAttr.MatchString(s)
}

// UUIDShape reports whether s looks like a canonical textual UUID.
func UUIDShape(s string) bool {
	return reUUID.MatchString(s)
}

// PollInput checks a poll question and its options. All violations are
// reported together; the input is never partially accepted.
func PollInput(question string, options []string) error {
	v := &Violations{}

	q := utf8.RuneCountInString(question)
	if q == 0 {
		v.add("question", "must not be empty")
	} else if q > MaxQuestionLen {
		v.add("question", "must be at most %d characters", MaxQuestionLen)
	}
	if hasXSSSignature(question) {
		v.add("question", "contains disallowed markup")
	}

	if len(options) < MinOptions || len(options) > MaxOptions {
		v.add("options", "must contain between %d and %d entries", MinOptions, MaxOptions)
	}
	seen := make(map[string]bool, len(options))
	for i, opt := range options {
		field := fmt.Sprintf("options[%d]", i)
		n := utf8.RuneCountInString(opt)
		if n == 0 {
			v.add(field, "must not be empty")
		} else if n > MaxOptionLen {
			v.add(field, "must be at most %d characters", MaxOptionLen)
		}
		if hasXSSSignature(opt) {
			v.add(field, "contains disallowed markup")
		}
		if seen[opt] {
			v.add("options", "entries must be unique (%q appears more than once)", opt)
		}
		seen[opt] = true
	}

	return v.orNil()
}

// VoteInput checks the shape of a vote submission. The upper bound of
// optionIndex is checked later against the actual poll; this layer has no
// datastore access.
func VoteInput(pollID string, optionIndex int) error {
	v := &Violations{}
	if !UUIDShape(pollID) {
		v.add("pollId", "must be a valid poll identifier")
	}
	if optionIndex < 0 {
		v.add("optionIndex", "must be a non-negative integer")
	}
	return v.orNil()
}

// LoginInput checks login credentials.
func LoginInput(email, password string) error {
	v := &Violations{}
	if err := fields.Var(email, "required,email"); err != nil {
		v.add("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(password) < 6 {
		v.add("password", "must be at least 6 characters")
	}
	return v.orNil()
}

// RegisterInput checks registration input. A password/confirmation mismatch
// is attached to the confirmation field.
func RegisterInput(name, email, password, confirmPassword string) error {
	v := &Violations{}

	n := utf8.RuneCountInString(name)
	if n == 0 {
		v.add("name", "must not be empty")
	} else if n > MaxNameLen {
		v.add("name", "must be at most %d characters", MaxNameLen)
	}
	if hasXSSSignature(name) {
		v.add("name", "contains disallowed markup")
	}

	if err := fields.Var(email, "required,email"); err != nil {
		v.add("email", "must be a valid email address")
	}

	p := utf8.RuneCountInString(password)
	if p < MinPasswordLen || p > MaxPasswordLen {
		v.add("password", "must be between %d and %d characters", MinPasswordLen, MaxPasswordLen)
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		v.add("password", "must contain at least one lowercase letter, one uppercase letter and one digit")
	}

	if password != confirmPassword {
		v.add("confirmPassword", "must match the password")
	}

	return v.orNil()
}
