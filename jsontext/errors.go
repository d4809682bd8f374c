package jsontext

import "errors"

var (
	// ErrSyntax indicates malformed JSON text.
	ErrSyntax = errors.New("jsontext: malformed JSON")

	// ErrKey indicates a composite value where an object key is required.
	ErrKey = errors.New("jsontext: composite value in key position")
)
