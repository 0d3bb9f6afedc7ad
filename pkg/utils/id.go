package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

// idSeq disambiguates IDs generated within the same nanosecond.
var idSeq uint64

func genID(prefix string) string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("%s-%020d-%06d", prefix, n, s)
}

// GenUserID returns a new user ID. IDs sort lexicographically in creation
// order, which the stores rely on for tie-breaking.
func GenUserID() string { return genID("user") }

// GenConversationID returns a new conversation ID.
func GenConversationID() string { return genID("conv") }

// GenMessageID returns a new message ID.
func GenMessageID() string { return genID("msg") }
