package recommend

// tracker is the consumed-id set threaded through cascade stages.
type tracker struct {
	seen map[string]struct{}
	ids  []string
}

func newTracker() *tracker {
	return &tracker{seen: make(map[string]struct{})}
}

// Add returns true when the id was new and is now consumed.
func (t *tracker) Add(id string) bool {
	if _, ok := t.seen[id]; ok {
		return false
	}
	t.seen[id] = struct{}{}
	t.ids = append(t.ids, id)
	return true
}

// IDs returns consumed ids in insertion order.
func (t *tracker) IDs() []string { return t.ids }
