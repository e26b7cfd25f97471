package types

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrNoDocumentFound is returned when an archive has no entry with a known
// document extension.
var ErrNoDocumentFound = xerrors.New("no document found in archive")

// FetchError is returned once every fetch attempt has failed. Err is the
// failure of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempt(s): %s", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PayloadError means the payload was retrieved but has the wrong shape:
// a broken archive, a compression error or undecodable JSON.
// It is never retried.
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid payload: %s", e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// ParseError is a document level syntax error.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
