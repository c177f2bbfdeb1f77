package nostr

import "slices"

type Filters []Filter

type Filter struct {
	IDs     []string
	Kinds   []int
	Authors []string
	Tags    TagMap
	Since   *Timestamp
	Until   *Timestamp
	Limit   int
}

// TagMap maps single-letter tag names (without the "#" prefix used on
// the wire) to their accepted value sets.
type TagMap map[string][]string

// Match reports whether the event satisfies any of the filters.
func (ff Filters) Match(event *Event) bool {
	for _, filter := range ff {
		if filter.Matches(event) {
			return true
		}
	}
	return false
}

// Matches implements the NIP-01 semantics: AND across populated fields,
// OR across each field's value set; an empty filter matches everything.
// Checks run cheapest-first and short-circuit on the first miss.
func (ef Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}

	if ef.IDs != nil && !slices.Contains(ef.IDs, event.ID) {
		return false
	}

	if ef.Authors != nil && !slices.Contains(ef.Authors, event.PubKey) {
		return false
	}

	if ef.Kinds != nil && !slices.Contains(ef.Kinds, event.Kind) {
		return false
	}

	// since is inclusive, until exclusive
	if ef.Since != nil && event.CreatedAt < *ef.Since {
		return false
	}

	if ef.Until != nil && event.CreatedAt >= *ef.Until {
		return false
	}

	for tagName, values := range ef.Tags {
		if !event.Tags.ContainsAny(tagName, values) {
			return false
		}
	}

	return true
}

func FilterEqual(a Filter, b Filter) bool {
	if !Similar(a.Kinds, b.Kinds) {
		return false
	}

	if !Similar(a.IDs, b.IDs) {
		return false
	}

	if !Similar(a.Authors, b.Authors) {
		return false
	}

	if len(a.Tags) != len(b.Tags) {
		return false
	}

	for f, av := range a.Tags {
		if bv, ok := b.Tags[f]; !ok {
			return false
		} else {
			if !Similar(av, bv) {
				return false
			}
		}
	}

	if !arePointerValuesEqual(a.Since, b.Since) {
		return false
	}

	if !arePointerValuesEqual(a.Until, b.Until) {
		return false
	}

	return true
}

func arePointerValuesEqual[V comparable](a *V, b *V) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil {
		return *a == *b
	}
	return false
}
