package merge

import (
	"github.com/pmezard/go-difflib/difflib"
)

// OwnershipDiff renders a unified diff between two ownership listings as
// produced by store.Tx.OwnershipListing. Identical listings give "".
func OwnershipDiff(before, after []string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(before),
		B:        withNewlines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  0,
	})
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
