package memory

// DialogInstance is the state of one active dialog. State backs the dialog
// scope; Class holds the dialog's declared properties and backs the class
// scope.
type DialogInstance struct {
	ID    string
	State map[string]any
	Class map[string]any
}

// DialogContext binds a turn to the active dialog and its ancestors.
// Dialog and Parent may be nil.
type DialogContext struct {
	Turn   *Turn
	Dialog *DialogInstance
	Parent *DialogContext
}

// NewDialogContext returns a root context for turn with no active dialog.
func NewDialogContext(turn *Turn) *DialogContext {
	if turn == nil {
		turn = NewTurn()
	}
	return &DialogContext{Turn: turn}
}

// Begin returns a context for a dialog started from dc. A root context
// with no active dialog is replaced rather than becoming a parent.
func (dc *DialogContext) Begin(dialog *DialogInstance) *DialogContext {
	parent := dc
	if dc.Dialog == nil {
		parent = dc.Parent
	}
	return &DialogContext{Turn: dc.Turn, Dialog: dialog, Parent: parent}
}
