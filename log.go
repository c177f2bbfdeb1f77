package nostr

import (
	"io"
	"log"
)

var (
	// call SetOutput on InfoLogger to enable info logging
	InfoLogger = log.New(io.Discard, "[gonostr][info] ", log.LstdFlags)

	// call SetOutput on DebugLogger to enable debug logging
	DebugLogger = log.New(io.Discard, "[gonostr][debug] ", log.LstdFlags)
)

func debugLogf(str string, args ...any) {
	DebugLogger.Printf(str, args...)
}
