package inference

import (
	"regexp"
	"strconv"
	"strings"
)

// namedPatterns is the small pattern library spec §4.4 step 5 checks
// against once a field has at least 3 string samples.
var namedPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"phone", regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)},
	{"zip-code", regexp.MustCompile(`^\d{5}(-\d{4})?$`)},
	{"hex-color", regexp.MustCompile(`^#[0-9a-fA-F]{3}([0-9a-fA-F]{3})?$`)},
	{"slug", regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)},
	{"credit-card", regexp.MustCompile(`^\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}$`)},
}

// DetectPattern returns the name of the first named pattern every sample
// matches, requiring at least 3 samples, or "" if none applies.
func DetectPattern(samples []string) string {
	if len(samples) < 3 {
		return ""
	}
	for _, p := range namedPatterns {
		if allMatch(p.re, samples) {
			return p.name
		}
	}
	return ""
}

// CharacterClass renders s into the {d,U,L,s,p} pattern-class alphabet
// (digit, uppercase letter, lowercase letter, whitespace, punctuation/
// other), with runs compressed as c{n} per the glossary.
func CharacterClass(s string) string {
	var classes []byte
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			classes = append(classes, 'd')
		case r >= 'A' && r <= 'Z':
			classes = append(classes, 'U')
		case r >= 'a' && r <= 'z':
			classes = append(classes, 'L')
		case r == ' ' || r == '\t' || r == '\n':
			classes = append(classes, 's')
		default:
			classes = append(classes, 'p')
		}
	}
	if len(classes) == 0 {
		return ""
	}

	var b strings.Builder
	run := 1
	for i := 1; i <= len(classes); i++ {
		if i < len(classes) && classes[i] == classes[i-1] {
			run++
			continue
		}
		b.WriteByte(classes[i-1])
		if run > 1 {
			b.WriteString("{")
			b.WriteString(strconv.Itoa(run))
			b.WriteString("}")
		}
		run = 1
	}
	return b.String()
}
