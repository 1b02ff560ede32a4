/*
Package ports defines the interfaces statepath uses to reach state that lives
outside a single turn.

  - ScopeStore: loads and saves the user and conversation scopes.
  - DistributedLocker: optional cross-process lock taken around a turn.

RunScopeStoreContract is the shared test suite every ScopeStore
implementation is expected to pass.
*/
package ports
