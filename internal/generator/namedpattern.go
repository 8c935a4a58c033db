package generator

import "fmt"

// namedPatternLibrary generates values for the named patterns inference
// tags onto model.Model.Pattern (the names assigned by
// internal/inference's small pattern library), as opposed to literal
// regex syntax, which falls back to genPattern.
var namedPatternLibrary = map[string]func(s *Source) string{
	"phone":       genPhone,
	"zip-code":    genZipCode,
	"hex-color":   genHexColor,
	"slug":        genSlug,
	"credit-card": genCreditCard,
}

func genPhone(s *Source) string {
	return fmt.Sprintf("+1-%03d-%03d-%04d", 200+s.IntN(800), s.IntN(1000), s.IntN(10000))
}

func genZipCode(s *Source) string {
	return fmt.Sprintf("%05d", s.IntN(100000))
}

func genHexColor(s *Source) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 6)
	for i := range out {
		out[i] = hex[s.IntN(16)]
	}
	return "#" + string(out)
}

var slugWords = []string{"alpha", "beta", "gamma", "delta", "omega", "zenith", "nova", "echo"}

func genSlug(s *Source) string {
	n := 2 + s.IntN(2)
	out := slugWords[s.IntN(len(slugWords))]
	for i := 1; i < n; i++ {
		out += "-" + slugWords[s.IntN(len(slugWords))]
	}
	return out
}

func genCreditCard(s *Source) string {
	return fmt.Sprintf("%04d %04d %04d %04d", s.IntN(10000), s.IntN(10000), s.IntN(10000), s.IntN(10000))
}
