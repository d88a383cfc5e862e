package identity

import "strings"

// AnonymousPrefix tags user ids generated client-side for visitors without an
// account. Clients must preserve the prefix exactly; it is the sole signal
// separating the two session policies.
const AnonymousPrefix = "anon_"

// UserRef is a classified user reference. Session policy branches on the tag
// instead of re-parsing id strings.
type UserRef struct {
	ID        string
	Anonymous bool
}

// ParseUserRef classifies a raw user id by the anonymous prefix convention.
// The prefix check lives only here.
func ParseUserRef(raw string) UserRef {
	return UserRef{ID: raw, Anonymous: strings.HasPrefix(raw, AnonymousPrefix)}
}
