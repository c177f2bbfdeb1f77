package nostr

import (
	"errors"
	"slices"
)

type Tag []string

type Tags []Tag

// Find returns the first tag with the given key/tagName that also has
// one value (i.e. at least 2 items).
func (tags Tags) Find(key string) Tag {
	for _, v := range tags {
		if len(v) >= 2 && v[0] == key {
			return v
		}
	}
	return nil
}

// FindWithValue is like Find, but also checks if the value (the second item) matches.
func (tags Tags) FindWithValue(key, value string) Tag {
	for _, v := range tags {
		if len(v) >= 2 && v[1] == value && v[0] == key {
			return v
		}
	}
	return nil
}

// ContainsAny reports whether any tag under the given name carries one
// of the given values as its second item.
func (tags Tags) ContainsAny(tagName string, values []string) bool {
	for _, tag := range tags {
		if len(tag) < 2 {
			continue
		}

		if tag[0] != tagName {
			continue
		}

		if slices.Contains(values, tag[1]) {
			return true
		}
	}

	return false
}

// Clone creates a new array with clones of these tags inside.
func (tags Tags) Clone() Tags {
	newArr := make(Tags, len(tags))
	for i := range newArr {
		newArr[i] = tags[i].Clone()
	}
	return newArr
}

// Clone creates a new array with these tag items inside.
func (tag Tag) Clone() Tag {
	newArr := make(Tag, len(tag))
	copy(newArr, tag)
	return newArr
}

// marshalTo appends the JSON encoded tag list to dst. This is part of
// the canonical event serialization, so it must only use escapeString.
func (tags Tags) marshalTo(dst []byte) []byte {
	dst = append(dst, '[')
	for i, tag := range tags {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = tag.marshalTo(dst)
	}
	dst = append(dst, ']')
	return dst
}

func (tag Tag) marshalTo(dst []byte) []byte {
	dst = append(dst, '[')
	for i, s := range tag {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = escapeString(dst, s)
	}
	dst = append(dst, ']')
	return dst
}

// this exists to satisfy Postgres and stuff
func (t *Tags) Scan(src any) error {
	var jtags []byte

	switch v := src.(type) {
	case []byte:
		jtags = v
	case string:
		jtags = []byte(v)
	default:
		return errors.New("couldn't scan tags, it's not a json string")
	}

	return json.Unmarshal(jtags, t)
}
