package behavior

import "errors"

var (
	ErrDecoratorWithoutChild  = errors.New("decorator has no child")
	ErrDecoratorChildCount    = errors.New("decorator accepts exactly one child")
	ErrUnregisteredAgent      = errors.New("agent is not registered with tree")
	ErrNodeNotInitialized     = errors.New("node was not initialized for agent")
	ErrExecuteBeforeUpdate    = errors.New("execute called before update in the same tick")
	ErrVariableTypeMismatch   = errors.New("variable holds a value of another type")
	ErrMissingVariable        = errors.New("variable is not set")
	ErrConcurrentModification = errors.New("scheduler modified during tick")
	ErrMissingCapability      = errors.New("agent lacks capability")
	ErrTreeRegistered         = errors.New("tree already registered")
	ErrUnknownTree            = errors.New("unknown tree")
	ErrEmptyTreeName          = errors.New("tree name is empty")
	ErrCatalogueSealed        = errors.New("catalogue is sealed")
)
