// Package inference implements schema inference (spec §4.4) and enum
// detection (spec §4.5): deriving a model.Model from a sample of documents.
package inference

// Options tunes the inference procedure. Zero value is not meant to be
// used directly; call DefaultOptions().
type Options struct {
	// EnableFormatDetection turns on the email/uri/uuid/date-time/date/
	// time/ipv4/ipv6 format regex matching in step 5.
	EnableFormatDetection bool
	// EnablePatternDetection turns on the ≥3-sample pattern-library match
	// in step 5.
	EnablePatternDetection bool
	// EnableForeignKeyHints turns on the optional relationship tagging in
	// step 7.
	EnableForeignKeyHints bool

	// HistogramMinSamples is the sample-size threshold (spec §4.4 step 6:
	// "if sample size ≥ 10") below which no histogram is built.
	HistogramMinSamples int
	// HistogramBinCount is the number of equal-width bins built for a
	// numeric histogram (spec §4.4 step 6: "10-bin equal-width").
	HistogramBinCount int

	// StringModelSampleCap bounds how many frequency-sorted samples feed
	// string model construction (spec §4.4 step 5: "up to 20").
	StringModelSampleCap int

	Enum EnumOptions
}

// DefaultOptions returns the spec's defaults.
func DefaultOptions() Options {
	return Options{
		EnableFormatDetection:  true,
		EnablePatternDetection: true,
		EnableForeignKeyHints:  true,
		HistogramMinSamples:    10,
		HistogramBinCount:      10,
		StringModelSampleCap:   20,
		Enum:                   DefaultEnumOptions(),
	}
}
