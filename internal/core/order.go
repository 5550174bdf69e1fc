package core

import "sort"

// ReconcileBoardOrder merges the persisted board order with the lists that
// actually exist. Ids in the order that no longer resolve to a list are
// dropped; lists missing from the order are appended sorted by id so no
// list is ever silently hidden. A nil order is treated as empty.
func ReconcileBoardOrder(order []string, lists []List) []string {
	known := make(map[string]bool, len(lists))
	for _, l := range lists {
		known[l.ID] = true
	}

	out := make([]string, 0, len(lists))
	seen := make(map[string]bool, len(lists))
	for _, id := range order {
		if known[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}

	var missing []string
	for _, l := range lists {
		if !seen[l.ID] {
			missing = append(missing, l.ID)
		}
	}
	sort.Strings(missing)
	return append(out, missing...)
}

// MoveIndex reorders ids by removing the element at from and reinserting it
// at to, matching array-move semantics. Out-of-range indexes return the
// input unchanged.
func MoveIndex(ids []string, from, to int) []string {
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) || from == to {
		return ids
	}
	out := make([]string, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	out = append(out[:to], append([]string{ids[from]}, out[to:]...)...)
	return out
}

// IndexOf returns the position of id in ids, or -1.
func IndexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
