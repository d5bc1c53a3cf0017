/*
Package session implements session management and persistence orchestration.

The Manager serializes every turn of a (user, account) session with a
reference-counted in-process mutex and, when configured, a distributed lock, so
that two near-simultaneous events from the same user cannot lose an update of
the session pointer.
*/
package session
