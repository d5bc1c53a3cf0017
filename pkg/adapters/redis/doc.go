// Package redis provides a Redis session store and a distributed per-session
// locker for running several chatflow replicas.
package redis
