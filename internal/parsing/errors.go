package parsing

import (
	"fmt"

	"github.com/jonathan/newsdesk/internal/types"
)

// LayerError reports why one recovery layer could not produce a result.
type LayerError struct {
	Layer   types.RecoveryLayer
	Message string
	Cause   error
}

func (e *LayerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s layer: %s: %v", e.Layer, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s layer: %s", e.Layer, e.Message)
}

func (e *LayerError) Unwrap() error {
	return e.Cause
}
