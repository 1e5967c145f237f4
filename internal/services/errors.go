package services

import (
	"errors"

	"invoicer/internal/core"
	"invoicer/internal/storage"
)

// asFieldError turns a dangling reference reported by the store into a
// validation failure on the field the caller supplied.
func asFieldError(err error) error {
	var v core.ValidationError
	switch {
	case errors.Is(err, storage.ErrUnknownClient):
		v.Add("client_id", "unknown client")
	case errors.Is(err, storage.ErrUnknownCategory):
		v.Add("category_id", "unknown category")
	default:
		return err
	}
	return v.Err()
}
