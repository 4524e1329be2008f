package store

// arena allocates document ids. A path keeps its id for the life of the
// arena, across deletion and rebuilds, and ids only grow.
type arena struct {
	ids  map[string]DocID
	next DocID
}

func newArena() *arena {
	return &arena{ids: make(map[string]DocID), next: 1}
}

// restore merges persisted entries.
func (a *arena) restore(ids map[string]DocID) {
	for p, id := range ids {
		a.ids[p] = id
		if id >= a.next {
			a.next = id + 1
		}
	}
}

// assign returns the id for path, allocating one if the path is unseen.
func (a *arena) assign(path string) (DocID, bool) {
	if id, ok := a.ids[path]; ok {
		return id, false
	}
	id := a.next
	a.next++
	a.ids[path] = id
	return id, true
}

// forget drops an allocation that was never persisted. The id is not
// handed out again.
func (a *arena) forget(path string) {
	delete(a.ids, path)
}

func (a *arena) snapshot() map[string]DocID {
	out := make(map[string]DocID, len(a.ids))
	for p, id := range a.ids {
		out[p] = id
	}
	return out
}
