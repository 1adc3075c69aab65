package core

import (
	"errors"

	"github.com/geomesh/proximity/internal/appstore"
)

// mapStoreErr translates appstore's sentinel into the core's own, so
// callers of this package never need to import appstore just to check
// an error kind.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, appstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
