package causality

import "github.com/halwest/tapline/internal/temporal"

// BuildChains walks backward through each event's declared causes and
// returns every distinct path from eventID to a root, each ordered
// effect → ... → root.
//
// A root is an event with no causes. A branch also terminates, silently,
// when it would revisit an id already on the current path (producer-supplied
// causes graphs are not guaranteed acyclic), when a cause id is missing from
// the table, or when maxDepth edges have been followed. Termination emits
// the partial path rather than raising: cycle tolerance is mandatory here.
//
// Returns nil when eventID itself is not present in byID.
func (a *Analyzer) BuildChains(eventID string, byID map[string]temporal.Event, maxDepth int) [][]string {
	if _, ok := byID[eventID]; !ok {
		return nil
	}

	var paths [][]string
	visited := map[string]bool{eventID: true}
	walk(eventID, byID, []string{eventID}, visited, maxDepth, &paths)
	return paths
}

// walk extends path from the event at its tail. visited tracks ids on the
// current path only, so diamond-shaped graphs still yield every distinct path.
func walk(id string, byID map[string]temporal.Event, path []string, visited map[string]bool, depthLeft int, paths *[][]string) {
	ev := byID[id]

	if len(ev.Causes) == 0 || depthLeft <= 0 {
		*paths = append(*paths, snapshot(path))
		return
	}

	for _, causeID := range ev.Causes {
		if _, known := byID[causeID]; !known || visited[causeID] {
			// Dangling reference or cycle: terminate this branch with the
			// path accumulated so far.
			*paths = append(*paths, snapshot(path))
			continue
		}

		visited[causeID] = true
		walk(causeID, byID, append(path, causeID), visited, depthLeft-1, paths)
		delete(visited, causeID)
	}
}

func snapshot(path []string) []string {
	return append([]string(nil), path...)
}
