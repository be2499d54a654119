package engine

import "github.com/ja7ad/flashbench/pkg/model"

// IntersectCandidates narrows one operation's per-size-group candidate
// lists (in MatchBucket's catalogue order, which may repeat a JEDEC shared
// by several rows) down to a single cross-group conclusion: it finds the
// first non-empty group, deduplicates it as the seed, and keeps only the JEDECs that
// also appear in every other non-empty group. Groups with no candidates
// (NA) never constrain the result.
func IntersectCandidates(perGroup map[model.SizeGroup][]string) []string {
	groups := model.SizeGroups()

	var seed []string
	for _, g := range groups {
		if lst := perGroup[g]; len(lst) > 0 {
			seed = dedupePreserveOrder(lst)
			break
		}
	}
	if seed == nil {
		return nil
	}

	survivors := make([]string, 0, len(seed))
	for _, jedec := range seed {
		keep := true
		for _, g := range groups {
			lst := perGroup[g]
			if len(lst) == 0 {
				continue
			}
			if !containsString(lst, jedec) {
				keep = false
				break
			}
		}
		if keep {
			survivors = append(survivors, jedec)
		}
	}
	return survivors
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func dedupePreserveOrder(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
