package authz

import "crypto/subtle"

// tokenEqual compares shared-secret join tokens in constant time.
// Empty stored tokens never match.
func tokenEqual(presented, stored string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
