package collection

import (
	"sort"

	"github.com/mongtap/mongtap/internal/bsonx"
)

// SortDocs orders docs by spec's sort document: each entry maps a dotted
// field path to 1 (ascending) or -1 (descending); ties fall through to
// the next key in document order.
func SortDocs(docs []bsonx.D, spec bsonx.D) {
	if len(spec) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range spec {
			dir := 1
			if f, ok := numericOf(e.Value); ok && f < 0 {
				dir = -1
			}
			vi, _ := resolveDotted(docs[i], e.Key)
			vj, _ := resolveDotted(docs[j], e.Key)
			c := compareLoose(vi, vj)
			if c == 0 {
				continue
			}
			return (c < 0) == (dir > 0)
		}
		return false
	})
}
