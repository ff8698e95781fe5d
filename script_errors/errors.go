// Provides common scriptcore errors definitions.
package script_errors

import "errors"

var (
	// raised into the active script call
	ErrKeyNotFound      = errors.New("Key not found")
	ErrIndexOutOfBounds = errors.New("Index out of bounds")
	ErrNullContainer    = errors.New("Dict is null")

	ErrInvalidArg            = errors.New("scriptcore: invalid argument")
	ErrInvalidTypeID         = errors.New("scriptcore: type id not storable")
	ErrUnknownType           = errors.New("scriptcore: unknown type")
	ErrBadDecl               = errors.New("scriptcore: bad type declaration")
	ErrTypeExists            = errors.New("scriptcore: type already registered")
	ErrNotTemplate           = errors.New("scriptcore: not a template type")
	ErrTemplateRejected      = errors.New("scriptcore: template instance rejected")
	ErrNoDefaultConstructor  = errors.New("The subtype has no default constructor")
	ErrNoDefaultFactory      = errors.New("The subtype has no default factory")
	ErrVoidSubtype           = errors.New("scriptcore: void subtype")
	ErrUnsupportedComparator = errors.New("scriptcore: type has no comparator")
	ErrBadInitList           = errors.New("scriptcore: odd initializer list")
	ErrHashCollision         = errors.New("scriptcore: hashed string collision")
	ErrHashUnknown           = errors.New("scriptcore: unknown string hash")
	ErrClosed                = errors.New("scriptcore: runtime closed")
)
