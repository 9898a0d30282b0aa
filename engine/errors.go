package engine

import (
	"fmt"

	"github.com/Aukciszek/backend/protoerr"
)

func errNotSet(field string) error {
	return fmt.Errorf("%w: %s is not set", protoerr.ErrNotInitialized, field)
}
