package model

// StringModel aggregates per-character, per-n-gram, and per-value
// statistics used to synthesize strings that resemble an observed sample,
// spec §3.
type StringModel struct {
	MinLength     int     `json:"minLength"`
	MaxLength     int     `json:"maxLength"`
	AverageLength float64 `json:"averageLength"`

	UniqueCharacters []string `json:"uniqueCharacters,omitempty"`

	CharacterFrequency   map[string]int     `json:"characterFrequency,omitempty"`
	CharacterProbability map[string]float64 `json:"characterProbability,omitempty"`

	// Patterns maps a pattern-class string (spec §3's {d,U,L,s,p} alphabet)
	// to its observed count, top 10.
	Patterns map[string]int `json:"patterns,omitempty"`

	// NGrams maps a 2- or 3-character substring to its observed count,
	// top 20, each appearing more than once.
	NGrams map[string]int `json:"nGrams,omitempty"`

	CommonPrefixes map[string]int `json:"commonPrefixes,omitempty"`
	CommonSuffixes map[string]int `json:"commonSuffixes,omitempty"`

	ValueFrequency map[string]int `json:"valueFrequency,omitempty"`
	SampleValues   []string       `json:"sampleValues,omitempty"`
	UniqueValues   []string       `json:"uniqueValues,omitempty"`

	TotalSamples     int `json:"totalSamples"`
	UniqueValueCount int `json:"uniqueValueCount"`

	EntropyScore float64 `json:"entropyScore"`
	MaxEntropy   float64 `json:"maxEntropy"`
	Complexity   float64 `json:"complexity"`

	EntropyOverride *float64 `json:"entropyOverride,omitempty"`
}

// EffectiveEntropy returns the entropy value generation should branch on:
// the caller's override if present, else the trained EntropyScore, per
// spec §4.7.
func (s *StringModel) EffectiveEntropy(override *float64) float64 {
	if override != nil {
		return *override
	}
	if s.EntropyOverride != nil {
		return *s.EntropyOverride
	}
	return s.EntropyScore
}
