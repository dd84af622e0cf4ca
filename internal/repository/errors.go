// Package repository implements the data-access layer over MySQL. Sentinel
// errors let handlers map failure scenarios onto HTTP statuses without
// inspecting driver errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup matches no row. Handlers translate
// it to 404, or to the uniform 401 on auth paths where "no such account"
// must be indistinguishable from "wrong password".
var ErrNotFound = errors.New("record not found")

// ErrEmailExists is returned when an insert or update violates the unique
// email constraint. Handlers translate it to HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNameExists is the tours counterpart: the unique tour name is taken.
var ErrNameExists = errors.New("name already exists")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (error number 1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
