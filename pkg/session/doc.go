/*
Package session persists the authenticated-user/token bundle in a key-value store.

The Repository writes three keys (TokenKey, RefreshTokenKey, UserKey) and
serializes access so a save never interleaves with a clear.
*/
package session
