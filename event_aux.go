package nostr

import (
	"github.com/mailru/easyjson"
	jlexer "github.com/mailru/easyjson/jlexer"
	jwriter "github.com/mailru/easyjson/jwriter"
)

func (evt *Event) UnmarshalJSON(data []byte) error {
	return easyjson.Unmarshal(data, evt)
}

// MarshalJSON returns the JSON byte encoding of the event, as in NIP-01.
func (evt Event) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	evt.MarshalEasyJSON(&w)
	return w.BuildBytes()
}

func (evt Event) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":"` + evt.ID + `"`)
	w.RawString(`,"pubkey":"` + evt.PubKey + `"`)
	w.RawString(`,"created_at":`)
	w.Int64(int64(evt.CreatedAt))
	w.RawString(`,"kind":`)
	w.Int(evt.Kind)
	w.RawString(`,"tags":`)
	w.Raw(evt.Tags.marshalTo(nil), nil)
	w.RawString(`,"content":`)
	w.Raw(escapeString(nil, evt.Content), nil)
	w.RawString(`,"sig":"` + evt.Sig + `"}`)
}

func (evt *Event) UnmarshalEasyJSON(in *jlexer.Lexer) {
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "id":
			evt.ID = in.String()
		case "pubkey":
			evt.PubKey = in.String()
		case "created_at":
			evt.CreatedAt = Timestamp(in.Int64())
		case "kind":
			evt.Kind = in.Int()
		case "tags":
			evt.Tags = tagsFromLexer(in)
		case "content":
			evt.Content = in.String()
		case "sig":
			evt.Sig = in.String()
		default:
			// unknown fields are not kept
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
}

func tagsFromLexer(in *jlexer.Lexer) Tags {
	tags := make(Tags, 0, 8)
	in.Delim('[')
	for !in.IsDelim(']') {
		tag := make(Tag, 0, 4)
		in.Delim('[')
		for !in.IsDelim(']') {
			tag = append(tag, in.String())
			in.WantComma()
		}
		in.Delim(']')
		tags = append(tags, tag)
		in.WantComma()
	}
	in.Delim(']')
	return tags
}
