package crud

import (
	"fmt"

	ormerrors "github.com/litemap/litemap/internal/orm/errors"
)

type schemaMissError struct {
	name string
}

func (e *schemaMissError) Error() string {
	return fmt.Sprintf("%s is not part of the schema", e.name)
}

func (e *schemaMissError) Unwrap() error {
	return ormerrors.ErrConfiguration
}

// ConvertDBError wraps a driver failure into a StoreError. Errors already classified
// pass through unchanged.
func ConvertDBError(op Operation, table string, err error) error {
	return ormerrors.Store(op.String(), table, err)
}
