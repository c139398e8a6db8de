package api

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// Input validation for the read endpoints. Queries are always built with
// bound parameters; the whitelist and denylist exist on top of that so
// suspicious input is rejected and logged before any query is assembled.

const maxParamLen = 64

var paramPattern = regexp.MustCompile(`^[a-zA-Z0-9\s._-]+$`)

var sqlKeywords = []string{
	"SELECT", "DROP", "DELETE", "TRUNCATE", "UPDATE",
	"INSERT", "TABLE", "DATABASE", "UNION", "ALTER",
}

// ValidateParam checks a free-text query parameter against the character
// whitelist, the length cap and the SQL-keyword denylist.
func ValidateParam(name, value string) error {
	if value == "" {
		return eris.Errorf("%s is required", name)
	}
	if len(value) > maxParamLen {
		return eris.Errorf("%s exceeds %d characters", name, maxParamLen)
	}
	upper := strings.ToUpper(value)
	for _, kw := range sqlKeywords {
		if strings.Contains(upper, kw) {
			return eris.Errorf("%s contains a forbidden keyword", name)
		}
	}
	if !paramPattern.MatchString(value) {
		return eris.Errorf("%s contains invalid characters", name)
	}
	return nil
}

// ValidateYear checks that a model year is inside a sane range.
func ValidateYear(year int) error {
	if year < 1900 || year > 2100 {
		return eris.Errorf("year must be between 1900 and 2100")
	}
	return nil
}
