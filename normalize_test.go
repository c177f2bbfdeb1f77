package nostr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"wss://relay.example.com":       "wss://relay.example.com",
		"wss://relay.example.com/":      "wss://relay.example.com",
		"wss://RELAY.example.COM/path/": "wss://relay.example.com/path",
		"https://relay.example.com":     "wss://relay.example.com",
		"http://relay.example.com":      "ws://relay.example.com",
		"relay.example.com":             "wss://relay.example.com",
		"localhost:7447":                "ws://localhost:7447",
		"127.0.0.1:7447":                "ws://127.0.0.1:7447",
		"  wss://relay.example.com  ":   "wss://relay.example.com",
		"wss://relay.example.com?x=1":   "wss://relay.example.com?x=1",
		"":                              "",
	}

	for input, expected := range cases {
		assert.Equal(t, expected, NormalizeURL(input), "input: %q", input)
	}
}
