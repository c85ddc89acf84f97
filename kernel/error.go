package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to an Error so they can be returned and compared by identity
// without touching the heap; the error path of the allocator itself must
// never allocate.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the same kernel error. It allows the
// hosted tooling to match kernel errors with errors.Is after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t == e
}
