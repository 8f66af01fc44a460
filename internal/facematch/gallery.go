package facematch

// Gallery is the in-memory working set of known identities for one capture session.
// It is seeded from the store at startup and grows by one entry per newly minted identity.
// Not safe for concurrent use; the capture loop is its only owner.
type Gallery struct {
	entries []Entry
	labels  map[string]struct{}
	next    int
}

// NewGallery seeds a gallery with the given entries, in order.
// The label counter starts at the number of distinct labels plus one and skips
// generated labels already present, so an edited store never gets a label reused.
func NewGallery(entries []Entry) *Gallery {
	g := &Gallery{
		entries: make([]Entry, 0, len(entries)),
		labels:  make(map[string]struct{}),
	}
	for _, e := range entries {
		g.entries = append(g.entries, e)
		g.labels[e.Label] = struct{}{}
	}
	g.next = len(g.labels) + 1
	g.skipTaken()
	return g
}

// skipTaken moves the counter past generated labels that already exist,
// which only happens when the store was edited between sessions.
func (g *Gallery) skipTaken() {
	for {
		if _, taken := g.labels[FormatLabel(g.next)]; !taken {
			return
		}
		g.next++
	}
}

// NextLabel returns the label the next novel identity will get.
func (g *Gallery) NextLabel() string {
	return FormatLabel(g.next)
}

// Counter returns the current value of the label counter.
func (g *Gallery) Counter() int {
	return g.next
}

// Admit appends a newly discovered identity and advances the label counter.
// Call it exactly once per novel match result.
func (g *Gallery) Admit(label string, embedding []float64) {
	g.entries = append(g.entries, Entry{Label: label, Embedding: embedding})
	g.labels[label] = struct{}{}
	g.next++
	g.skipTaken()
}

// Entries returns the gallery in insertion order. The slice must not be modified.
func (g *Gallery) Entries() []Entry {
	return g.entries
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	return len(g.entries)
}

// DistinctLabels returns the number of distinct labels in the gallery.
func (g *Gallery) DistinctLabels() int {
	return len(g.labels)
}
