// Package facematch assigns identity labels to face embeddings by comparing them
// against the session gallery of known faces.
package facematch

import "strconv"

// LabelPrefix is prepended to the counter when a new identity is minted.
const LabelPrefix = "PersonId"

// DefaultThreshold is the euclidean distance under which two embeddings are the same person.
const DefaultThreshold = 0.6

// Entry is one known (label, embedding) pair of the gallery.
type Entry struct {
	Label     string
	Embedding []float64
}

// Result is the outcome of matching one probe embedding.
type Result struct {
	Label    string
	Novel    bool    // no gallery entry was within the threshold
	Index    int     // gallery index of the matched entry, -1 when novel
	Distance float64 // distance to the matched entry, 0 when novel
}

// FormatLabel returns the generated label for counter n.
func FormatLabel(n int) string {
	return LabelPrefix + strconv.Itoa(n)
}
