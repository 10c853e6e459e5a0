/*
Package auth owns the session lifecycle: login, registration, logout, token
refresh and expiry detection.

The Manager is the single writer of the session. Every path that enters the
authenticated state goes through one mutation point that stores the token,
its expiry, the persisted copy and the gateway's bearer header together.

While authenticated, a background check runs every CheckInterval: an expired
token ends the session with a session:expired event; a token within
RefreshThreshold of expiry is refreshed. A failed refresh always ends the
session. The check is stopped whenever the session is cleared.
*/
package auth
