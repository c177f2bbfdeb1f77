package nostr

import (
	"strings"

	"github.com/mailru/easyjson"
	jlexer "github.com/mailru/easyjson/jlexer"
	jwriter "github.com/mailru/easyjson/jwriter"
)

func (f *Filter) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, f)
}

func (f Filter) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	f.MarshalEasyJSON(&w)
	return w.BuildBytes()
}

func (f Filter) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	first := true

	writeKey := func(key string) {
		if !first {
			w.RawByte(',')
		}
		first = false
		w.String(key)
		w.RawByte(':')
	}

	if f.IDs != nil {
		writeKey("ids")
		writeStringArray(w, f.IDs)
	}
	if f.Kinds != nil {
		writeKey("kinds")
		w.RawByte('[')
		for i, kind := range f.Kinds {
			if i > 0 {
				w.RawByte(',')
			}
			w.Int(kind)
		}
		w.RawByte(']')
	}
	if f.Authors != nil {
		writeKey("authors")
		writeStringArray(w, f.Authors)
	}
	if f.Since != nil {
		writeKey("since")
		w.Int64(int64(*f.Since))
	}
	if f.Until != nil {
		writeKey("until")
		w.Int64(int64(*f.Until))
	}
	if f.Limit > 0 {
		writeKey("limit")
		w.Int(f.Limit)
	}
	for tagName, values := range f.Tags {
		writeKey("#" + tagName)
		writeStringArray(w, values)
	}

	w.RawByte('}')
}

func writeStringArray(w *jwriter.Writer, values []string) {
	w.RawByte('[')
	for i, v := range values {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(v)
	}
	w.RawByte(']')
}

func (f *Filter) UnmarshalEasyJSON(in *jlexer.Lexer) {
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch {
		case key == "ids":
			f.IDs = stringArrayFromLexer(in)
		case key == "kinds":
			f.Kinds = make([]int, 0, 8)
			in.Delim('[')
			for !in.IsDelim(']') {
				f.Kinds = append(f.Kinds, in.Int())
				in.WantComma()
			}
			in.Delim(']')
		case key == "authors":
			f.Authors = stringArrayFromLexer(in)
		case key == "since":
			since := Timestamp(in.Int64())
			f.Since = &since
		case key == "until":
			until := Timestamp(in.Int64())
			f.Until = &until
		case key == "limit":
			f.Limit = in.Int()
		case strings.HasPrefix(key, "#") && len(key) > 1:
			if f.Tags == nil {
				f.Tags = make(TagMap)
			}
			// the unsafe field name aliases the input buffer
			f.Tags[strings.Clone(key[1:])] = stringArrayFromLexer(in)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
}

func stringArrayFromLexer(in *jlexer.Lexer) []string {
	values := make([]string, 0, 8)
	in.Delim('[')
	for !in.IsDelim(']') {
		values = append(values, in.String())
		in.WantComma()
	}
	in.Delim(']')
	return values
}
