// Package jwt decodes the access tokens issued by the hosted backend.
//
// The client never verifies signatures; the backend does that on every
// request. Decoded claims drive session bookkeeping: whether a restored
// session is expired, when to refresh it, and which user it belongs to.
//
//	claims, err := jwt.Decode(session.AccessToken)
//	if err != nil {
//	    // malformed token
//	}
//	if claims.ExpiresWithin(time.Now(), time.Minute) {
//	    // refresh before use
//	}
package jwt
