package generator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mongtap/mongtap/internal/model"
)

// generateFromStringModel implements spec §4.7's three entropy-banded
// branches for a string field with a trained StringModel but no format or
// pattern.
func generateFromStringModel(sm *model.StringModel, src *Source, override *float64) string {
	entropy := sm.EffectiveEntropy(override)

	switch {
	case entropy < 2.0 && len(sm.ValueFrequency) > 0:
		return weightedPick(sm.ValueFrequency, src)
	case entropy < 4.0 && len(sm.Patterns) > 0:
		return generateFromPatternClass(sm, src)
	default:
		return generateByNGramStitching(sm, src)
	}
}

func weightedPick(freq map[string]int, src *Source) string {
	keys := make([]string, 0, len(freq))
	total := 0
	for k, c := range freq {
		keys = append(keys, k)
		total += c
	}
	sort.Strings(keys)
	if total == 0 {
		if len(keys) == 0 {
			return ""
		}
		return keys[src.IntN(len(keys))]
	}
	target := src.IntN(total)
	cumulative := 0
	for _, k := range keys {
		cumulative += freq[k]
		if target < cumulative {
			return k
		}
	}
	return keys[len(keys)-1]
}

// generateFromPatternClass realizes a pattern-class string (spec §3's
// {d,U,L,s,p} alphabet with c{n} run compression) by sampling a class
// string weighted by frequency, then drawing each character from
// uniqueCharacters filtered to that class, falling back to the class's
// ASCII range.
func generateFromPatternClass(sm *model.StringModel, src *Source) string {
	patternClass := weightedPick(sm.Patterns, src)
	pools := classPools(sm.UniqueCharacters)

	var out strings.Builder
	i := 0
	runes := []rune(patternClass)
	for i < len(runes) {
		class := runes[i]
		count := 1
		i++
		if i < len(runes) && runes[i] == '{' {
			end := i + 1
			for end < len(runes) && runes[end] != '}' {
				end++
			}
			if end < len(runes) {
				if n, err := strconv.Atoi(string(runes[i+1 : end])); err == nil && n > 0 {
					count = n
				}
				i = end + 1
			}
		}
		for k := 0; k < count; k++ {
			out.WriteRune(realizeClass(class, pools, src))
		}
	}
	return out.String()
}

func classPools(uniqueCharacters []string) map[byte][]rune {
	pools := map[byte][]rune{}
	for _, s := range uniqueCharacters {
		for _, r := range s {
			switch {
			case r >= '0' && r <= '9':
				pools['d'] = append(pools['d'], r)
			case r >= 'A' && r <= 'Z':
				pools['U'] = append(pools['U'], r)
			case r >= 'a' && r <= 'z':
				pools['L'] = append(pools['L'], r)
			case r == ' ' || r == '\t':
				pools['s'] = append(pools['s'], r)
			default:
				pools['p'] = append(pools['p'], r)
			}
		}
	}
	return pools
}

func realizeClass(class rune, pools map[byte][]rune, src *Source) rune {
	if pool, ok := pools[byte(class)]; ok && len(pool) > 0 {
		return pool[src.IntN(len(pool))]
	}
	switch class {
	case 'd':
		return rune('0' + src.IntN(10))
	case 'U':
		return rune('A' + src.IntN(26))
	case 'L':
		return rune('a' + src.IntN(26))
	case 's':
		return ' '
	default:
		const punct = "!@#$%^&*-_=+"
		return rune(punct[src.IntN(len(punct))])
	}
}

// generateByNGramStitching implements the final fallback branch: build a
// target length, seed a common prefix, extend via weighted n-gram
// continuation, optionally overwrite the tail with a common suffix.
func generateByNGramStitching(sm *model.StringModel, src *Source) string {
	minLen, maxLen := sm.MinLength, sm.MaxLength
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen
	if maxLen > minLen {
		length = minLen + src.IntN(maxLen-minLen+1)
	}
	if length <= 0 {
		length = 1
	}

	var out []rune
	if len(sm.CommonPrefixes) > 0 {
		prefix := weightedPick(sm.CommonPrefixes, src)
		out = append(out, []rune(prefix)...)
	}

	for len(out) < length {
		next, ok := nextFromNGrams(out, sm.NGrams, src)
		if !ok {
			next, ok = nextFromCharacterProbability(sm.CharacterProbability, src)
		}
		if !ok {
			next, ok = nextFromUniqueCharacters(sm.UniqueCharacters, src)
		}
		if !ok {
			next = rune('a' + src.IntN(26))
		}
		out = append(out, next)
	}
	out = out[:length]

	if len(sm.CommonSuffixes) > 0 && src.Float64() < 0.3 {
		suffix := []rune(weightedPick(sm.CommonSuffixes, src))
		if len(suffix) <= len(out) {
			copy(out[len(out)-len(suffix):], suffix)
		}
	}
	return string(out)
}

func nextFromNGrams(soFar []rune, ngrams map[string]int, src *Source) (rune, bool) {
	if len(soFar) < 2 || len(ngrams) == 0 {
		return 0, false
	}
	last2 := string(soFar[len(soFar)-2:])
	candidates := map[string]int{}
	for ng, c := range ngrams {
		if strings.HasPrefix(ng, last2) && len(ng) > 2 {
			candidates[string([]rune(ng)[2:])] = c
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	picked := weightedPick(candidates, src)
	if picked == "" {
		return 0, false
	}
	return []rune(picked)[0], true
}

func nextFromCharacterProbability(probs map[string]float64, src *Source) (rune, bool) {
	if len(probs) == 0 {
		return 0, false
	}
	keys := make([]string, 0, len(probs))
	for k := range probs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	target := src.Float64()
	cumulative := 0.0
	for _, k := range keys {
		cumulative += probs[k]
		if target < cumulative {
			return []rune(k)[0], true
		}
	}
	return []rune(keys[len(keys)-1])[0], true
}

func nextFromUniqueCharacters(chars []string, src *Source) (rune, bool) {
	if len(chars) == 0 {
		return 0, false
	}
	return []rune(chars[src.IntN(len(chars))])[0], true
}
