package chat

import "time"

// Participants reduces the log to everyone seen within PresenceWindow of
// now: non-system entries with a name and color, one Participant per
// distinct name. The log is newest-first, so the first entry scanned for
// a name is its latest and wins on color.
func Participants(log []Entry, now time.Time) []Participant {
	cutoff := now.UnixMilli() - PresenceWindow.Milliseconds()
	seen := make(map[string]struct{}, len(log))
	out := make([]Participant, 0, 8)
	for _, e := range log {
		if e.System || e.Name == "" || e.Color == "" || e.Time < cutoff {
			continue
		}
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, Participant{ID: e.Name, Name: e.Name, Color: e.Color})
	}
	return out
}

// Ranking counts non-system entries per author name. It is recomputed
// from scratch whenever the log changes; nothing is maintained
// incrementally, so a wholesale log replacement needs no special casing.
func Ranking(log []Entry) map[string]int {
	counts := make(map[string]int, 16)
	for _, e := range log {
		if e.System || e.Name == "" {
			continue
		}
		counts[e.Name]++
	}
	return counts
}
