/*
Package router maps paths to view handlers.

Routes are matched in registration order; the first whose pattern matches the
whole path wins. A route may carry a guard (auth, guest, admin) evaluated
against an AuthChecker; a denied route never runs its handler and calls its
fallback instead.

Every navigation gets a sequence number. Handlers run asynchronously, and a
handler that settles after a newer navigation started is discarded: the last
navigation wins, not the last handler to finish.

Unmatched paths redirect (replacing history) to NotFoundPath and failing
handlers to ErrorPath. A reserved path that cannot be served itself stops the
chain.
*/
package router
