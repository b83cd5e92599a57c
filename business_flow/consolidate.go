package businessflow

// resolvedListing pairs a raw listing with its resolved identity inside a
// batch, before consolidation.
type resolvedListing struct {
	Listing  RawListing
	Identity string
}

// Consolidate collapses duplicate listings within one batch down to a single
// listing per identity key. Order of preference between two copies of the
// same product: a promotional copy beats a non-promotional one; otherwise
// the lower price wins; on an exact tie the first-seen copy is kept.
func Consolidate(listings []resolvedListing) []resolvedListing {
	byKey := make(map[string]int, len(listings))
	out := make([]resolvedListing, 0, len(listings))

	for _, rl := range listings {
		idx, seen := byKey[rl.Identity]
		if !seen {
			byKey[rl.Identity] = len(out)
			out = append(out, rl)
			continue
		}
		if preferListing(rl.Listing, out[idx].Listing) {
			out[idx] = rl
		}
	}
	return out
}

// preferListing reports whether candidate should replace current as the
// batch representative for a shared identity.
func preferListing(candidate, current RawListing) bool {
	candPromo := candidate.HasPromotion()
	curPromo := current.HasPromotion()
	if candPromo != curPromo {
		return candPromo
	}
	return candidate.Price < current.Price
}
