package errors

// WrapOpComponent provides a convenience helper to wrap errors with consistent
// Op and Component propagation. If err is nil, returns nil.
func WrapOpComponent(err error, op Operation, component string) error {
	if err == nil {
		return nil
	}
	return NewWithComponent(op, component, err)
}

// WrapStorage wraps an error as a storage failure, preserving nil.
func WrapStorage(err error, op Operation) error {
	if err == nil {
		return nil
	}
	return NewStorageError(op, err)
}
