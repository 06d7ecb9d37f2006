package reconciler

import "strings"

// tally counts names cited by rows that are absent from a known set. Entries
// keep the spelling and the order of their first appearance.
type tally struct {
	known map[string]struct{}
	index map[string]int
	items []MissingReference
}

func newTally(known []string) *tally {
	t := &tally{
		known: make(map[string]struct{}, len(known)),
		index: make(map[string]int),
		items: make([]MissingReference, 0),
	}
	for _, name := range known {
		if key := normalizeName(name); key != "" {
			t.known[key] = struct{}{}
		}
	}
	return t
}

func (t *tally) observe(name string) {
	key := normalizeName(name)
	if key == "" {
		return
	}
	if _, ok := t.known[key]; ok {
		return
	}
	if i, ok := t.index[key]; ok {
		t.items[i].Count++
		return
	}
	t.index[key] = len(t.items)
	t.items = append(t.items, MissingReference{Name: strings.TrimSpace(name), Count: 1})
}

func (t *tally) missing() []MissingReference {
	return t.items
}

// normalizeName upper-cases and collapses inner whitespace so that "vip  gold"
// and "VIP GOLD" are the same credential.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
