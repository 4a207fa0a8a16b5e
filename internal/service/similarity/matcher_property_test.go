package similarity

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func nameGen() gopter.Gen {
	return gen.OneGenOf(
		gen.AlphaString(),
		gen.AnyString(),
		gen.SliceOfN(3, gen.AlphaString()).Map(func(words []string) string {
			out := ""
			for i, w := range words {
				if i > 0 {
					out += " "
				}
				out += w
			}
			return out
		}),
	)
}

func TestSimilarityProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("similarity is symmetric", prop.ForAll(
		func(a, b string) bool {
			return Similarity(a, b) == Similarity(b, a)
		},
		nameGen(), nameGen(),
	))

	properties.Property("similarity is reflexive", prop.ForAll(
		func(a string) bool {
			return Similarity(a, a) == 1.0
		},
		nameGen(),
	))

	properties.Property("similarity stays in [0,1]", prop.ForAll(
		func(a, b string) bool {
			s := Similarity(a, b)
			return s >= 0 && s <= 1
		},
		nameGen(), nameGen(),
	))

	properties.Property("levenshtein is symmetric and bounded by the longer length", prop.ForAll(
		func(a, b string) bool {
			d := Levenshtein(a, b)
			longer := max(len([]rune(a)), len([]rune(b)))
			return d == Levenshtein(b, a) && d >= 0 && d <= longer
		},
		gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}
