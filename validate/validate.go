// Package validate checks a registration payload against an event's form.
package validate

import (
	"regexp"

	"github.com/mbolis/festreg/model"
)

// notSpaceOrAt excludes every character ECMAScript counts as whitespace,
// which is wider than RE2's ASCII-only \s.
const notSpaceOrAt = `[^\s\v\x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}@]`

var reEmail = regexp.MustCompile(`^` + notSpaceOrAt + `+@` + notSpaceOrAt + `+\.` + notSpaceOrAt + `+$`)

// Error is a rejected submission. Reason is safe to show to the client.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Submission walks the event's fields in order and returns one trimmed value
// per field, ready to be appended as a sheet row. It stops at the first
// field that fails: a blank required field, or a malformed email.
//
// Options of select and radio fields, numbers and phone numbers are not
// checked; any non-blank text passes.
func Submission(sub model.Submission, event model.Event) ([]string, error) {
	values := make([]string, 0, len(event.FormFields))
	for _, f := range event.FormFields {
		value := sub[f.ID].Trimmed()

		if f.Required && value == "" {
			return nil, &Error{f.ID, "Missing required field: " + f.Label}
		}
		if f.Type == model.FieldEmail && value != "" && !Email(value) {
			return nil, &Error{f.ID, "Invalid email address"}
		}

		values = append(values, value)
	}
	return values, nil
}

// Email reports whether s looks like local@domain.tld.
func Email(s string) bool {
	return reEmail.MatchString(s)
}
