package logging

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// LevelPattern assigns a level to every registered logger whose dotted name matches Pattern.
// A "*" section matches any run of characters, e.g. "balancer.*" or "*.beam".
type LevelPattern struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	// e.g. "beam".
	validSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "beam" or "*".
	validSectionNameWithWildcard = `(` + validSectionName + `|\*)`
	// e.g. "balancer.*.beam", anchored to the whole pattern.
	validLoggerPattern = `^` + validSectionNameWithWildcard + `(\.` + validSectionNameWithWildcard + `)*$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerPattern)

// Validate checks the pattern syntax and the level name.
func (lp LevelPattern) Validate() error {
	if !loggerPatternRegexp.MatchString(lp.Pattern) {
		return errors.Errorf("invalid logger pattern %q", lp.Pattern)
	}
	_, err := LevelFromString(lp.Level)
	return err
}

func (lp LevelPattern) compile() (*regexp.Regexp, error) {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range lp.Pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return regexp.Compile(matcher.String())
}
