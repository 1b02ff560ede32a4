package memory

import "errors"

var (
	// ErrInvalidOperation is returned for writes to reserved scopes, such as
	// replacing the dialog scope.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNoParentDialog is returned when a parent-scoped path is resolved
	// from a dialog context that has no parent.
	ErrNoParentDialog = errors.New("no parent dialog")

	// ErrRegistrySealed is returned when adding to a sealed ResolverRegistry.
	ErrRegistrySealed = errors.New("resolver registry is sealed")
)
