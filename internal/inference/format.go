package inference

import "regexp"

// formatDetectors are tried in order (spec §6.3's format vocabulary); the
// first whose regex matches every sample wins.
var formatDetectors = []struct {
	name string
	re   *regexp.Regexp
}{
	{"email", regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)},
	{"uuid", regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)},
	{"uri", regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://\S+$`)},
	{"ipv4", regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)},
	{"ipv6", regexp.MustCompile(`^[0-9a-fA-F:]+:[0-9a-fA-F:]*$`)},
	{"date-time", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)},
	{"date", regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)},
	{"time", regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?$`)},
}

// DetectFormat returns the name of the first format whose pattern every
// sample matches, or "" if none applies. Empty input never matches.
func DetectFormat(samples []string) string {
	if len(samples) == 0 {
		return ""
	}
	for _, fd := range formatDetectors {
		if allMatch(fd.re, samples) {
			return fd.name
		}
	}
	return ""
}

func allMatch(re *regexp.Regexp, samples []string) bool {
	for _, s := range samples {
		if !re.MatchString(s) {
			return false
		}
	}
	return true
}
