/*
Package memory implements the scoped memory model expressions evaluate against.

A StateManager exposes the scopes of one turn (turn, user, conversation,
settings and any application scope) together with the active dialog's
dialog and class scopes and a stack of closure frames. Paths are dispatched
through a ResolverRegistry: the first resolver whose Matched reports true
handles the path, and the DefaultPathResolver handles everything else.

The standard registry maps $name to the parent dialog's state, @name to
recognized entities, #name to recognized intents and %name to the class
scope.
*/
package memory
