package nostr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	testCases := []struct {
		Name             string
		Message          string
		ExpectedEnvelope Envelope
	}{
		{
			Name:             "nil",
			Message:          "",
			ExpectedEnvelope: nil,
		},
		{
			Name:             "invalid string",
			Message:          "invalid input",
			ExpectedEnvelope: nil,
		},
		{
			Name:             "unknown label",
			Message:          `["PING","something here"]`,
			ExpectedEnvelope: nil,
		},
		{
			Name:             "EVENT envelope with subscription id",
			Message:          `["EVENT","_",{"id":"dc90c95f09947507c1044e8f48bcf6350aa6bff1507dd4acfc755b9239b5c962","pubkey":"3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d","created_at":1644271588,"kind":1,"tags":[],"content":"now that https://blueskyweb.org/blog/2-7-2022-overview was announced we can stop working on nostr?","sig":"230e9d8f0ddaf7eb70b5f7741ccfa37e87a455c9a469282e3464e2052d3192cd63a167e196e381ef9d7e69e9ea43af2443b839974dc85d8aaab9efe1d9296524"}]`,
			ExpectedEnvelope: &EventEnvelope{SubscriptionID: ptr("_"), Event: Event{ID: "dc90c95f09947507c1044e8f48bcf6350aa6bff1507dd4acfc755b9239b5c962", PubKey: "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d", CreatedAt: Timestamp(1644271588), Kind: 1, Tags: Tags{}, Content: "now that https://blueskyweb.org/blog/2-7-2022-overview was announced we can stop working on nostr?", Sig: "230e9d8f0ddaf7eb70b5f7741ccfa37e87a455c9a469282e3464e2052d3192cd63a167e196e381ef9d7e69e9ea43af2443b839974dc85d8aaab9efe1d9296524"}},
		},
		{
			Name:             "EOSE envelope",
			Message:          `["EOSE","subid"]`,
			ExpectedEnvelope: eosePtr("subid"),
		},
		{
			Name:             "NOTICE envelope",
			Message:          `["NOTICE","rate limited"]`,
			ExpectedEnvelope: noticePtr("rate limited"),
		},
		{
			Name:             "OK envelope success",
			Message:          `["OK","3da979448d9ba263864c4d6f14984c423a3838364ec255f03c7904b1ae77f206",true,""]`,
			ExpectedEnvelope: &OKEnvelope{EventID: "3da979448d9ba263864c4d6f14984c423a3838364ec255f03c7904b1ae77f206", OK: true},
		},
		{
			Name:             "OK envelope rejection",
			Message:          `["OK","3da979448d9ba263864c4d6f14984c423a3838364ec255f03c7904b1ae77f206",false,"blocked: tor exit nodes not welcome"]`,
			ExpectedEnvelope: &OKEnvelope{EventID: "3da979448d9ba263864c4d6f14984c423a3838364ec255f03c7904b1ae77f206", OK: false, Reason: "blocked: tor exit nodes not welcome"},
		},
		{
			Name:             "CLOSED envelope",
			Message:          `["CLOSED","_","error: something went wrong"]`,
			ExpectedEnvelope: &ClosedEnvelope{SubscriptionID: "_", Reason: "error: something went wrong"},
		},
		{
			Name:             "AUTH challenge envelope",
			Message:          `["AUTH","challenge-string"]`,
			ExpectedEnvelope: &AuthEnvelope{Challenge: ptr("challenge-string")},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			envelope := ParseMessage([]byte(testCase.Message))
			if testCase.ExpectedEnvelope == nil {
				assert.Nil(t, envelope, "expected nil but got %v", envelope)
				return
			}

			require.NotNil(t, envelope, "expected an envelope, got nil")
			assert.Equal(t, testCase.ExpectedEnvelope, envelope)
		})
	}
}

func TestReqEnvelopeEncodingAndDecoding(t *testing.T) {
	req := ReqEnvelope{
		SubscriptionID: "aaaa",
		Filters: Filters{{
			Kinds: []int{KindTextNote},
			Tags:  TagMap{"e": {"ref"}},
		}},
	}

	b, err := req.MarshalJSON()
	require.NoError(t, err)

	var back ReqEnvelope
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, "aaaa", back.SubscriptionID)
	require.Len(t, back.Filters, 1)
	assert.True(t, FilterEqual(req.Filters[0], back.Filters[0]))
}

func TestEventEnvelopeEncoding(t *testing.T) {
	subID := "xyz"
	evt := Event{
		ID:        "dc90c95f09947507c1044e8f48bcf6350aa6bff1507dd4acfc755b9239b5c962",
		PubKey:    "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d",
		CreatedAt: Timestamp(1644271588),
		Kind:      1,
		Tags:      Tags{},
		Content:   "hello",
		Sig:       "230e9d8f0ddaf7eb70b5f7741ccfa37e87a455c9a469282e3464e2052d3192cd63a167e196e381ef9d7e69e9ea43af2443b839974dc85d8aaab9efe1d9296524",
	}

	b, err := EventEnvelope{SubscriptionID: &subID, Event: evt}.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `["EVENT","xyz",{"id":"dc90c95f`)

	var back EventEnvelope
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, subID, *back.SubscriptionID)
	assert.Equal(t, evt, back.Event)
}

func TestCloseEnvelopeEncoding(t *testing.T) {
	b, err := CloseEnvelope("subid").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `["CLOSE","subid"]`, string(b))
}

func ptr(s string) *string { return &s }

func eosePtr(s string) *EOSEEnvelope {
	v := EOSEEnvelope(s)
	return &v
}

func noticePtr(s string) *NoticeEnvelope {
	v := NoticeEnvelope(s)
	return &v
}
