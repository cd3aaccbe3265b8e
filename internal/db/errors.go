package db

import "errors"

var (
	// ErrKeyNotFound is returned by KVStore.Get for a missing key.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexExists is returned by CreateIndex when another caller won the race.
	ErrIndexExists = errors.New("db: index already exists")
	// ErrUnsupportedFilter marks a filter the query dialect cannot express.
	ErrUnsupportedFilter = errors.New("db: unsupported filter")
)

// Server command names recorded in Error.Op.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpExists      = "EXISTS"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error records which server command failed. Callers classify the cause with
// errors.Is against Err; Op only feeds the message.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "db " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsServerError reports whether err came back from a store command.
func IsServerError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
