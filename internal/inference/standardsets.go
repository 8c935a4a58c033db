package inference

import "strings"

// standardSets are the built-in enumerations named in the glossary, used
// by enum detection's isStandardSet flag (spec §4.5 step 2).
var standardSets = map[string][]string{
	"weekdays": {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	"weekdaysShort": {"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
	"months": {
		"January", "February", "March", "April", "May", "June", "July",
		"August", "September", "October", "November", "December",
	},
	"monthsShort": {
		"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
	},
	"httpMethods": {"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "CONNECT", "TRACE"},
	"httpStatuses": {
		"200", "201", "204", "301", "302", "304", "400", "401", "403", "404",
		"405", "409", "422", "429", "500", "502", "503", "504",
	},
	"currencies": {"USD", "EUR", "GBP", "JPY", "CNY", "CHF", "CAD", "AUD", "INR", "BRL"},
	"usStates": {
		"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA", "HI", "ID", "IL",
		"IN", "IA", "KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO", "MT",
		"NE", "NV", "NH", "NJ", "NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI",
		"SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
	},
	"countries": {
		"United States", "Canada", "Mexico", "United Kingdom", "Germany", "France",
		"Spain", "Italy", "China", "Japan", "India", "Brazil", "Australia",
	},
	"priorities": {"low", "medium", "high", "critical", "urgent"},
	"sizes":      {"xs", "s", "m", "l", "xl", "xxl", "small", "medium", "large"},
	"directions": {"north", "south", "east", "west", "up", "down", "left", "right"},
	"booleans":   {"true", "false", "yes", "no", "on", "off"},
}

// standardSetOverlap returns the best-matching standard set name and the
// fraction of distinct sample values it contains, case-insensitively.
func standardSetOverlap(uniqueValues []string) (name string, overlap float64) {
	if len(uniqueValues) == 0 {
		return "", 0
	}
	lowerValues := make(map[string]struct{}, len(uniqueValues))
	for _, v := range uniqueValues {
		lowerValues[strings.ToLower(v)] = struct{}{}
	}

	var bestName string
	var bestOverlap float64
	for setName, set := range standardSets {
		lowerSet := make(map[string]struct{}, len(set))
		for _, v := range set {
			lowerSet[strings.ToLower(v)] = struct{}{}
		}
		matched := 0
		for v := range lowerValues {
			if _, ok := lowerSet[v]; ok {
				matched++
			}
		}
		frac := float64(matched) / float64(len(lowerValues))
		if frac > bestOverlap {
			bestOverlap = frac
			bestName = setName
		}
	}
	return bestName, bestOverlap
}
