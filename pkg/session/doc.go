/*
Package session runs turns against persisted scopes.

A Manager loads the user and conversation scopes for a TurnKey from a
ports.ScopeStore, hands a fresh memory.Turn to the caller, and saves back
only the scopes the turn changed. Turns for the same conversation are
serialised with a reference-counted in-process lock and, optionally, a
ports.DistributedLocker shared between replicas.
*/
package session
