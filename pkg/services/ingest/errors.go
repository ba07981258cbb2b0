package ingest

import (
	"errors"
	"fmt"
)

var errAlreadyImported = errors.New("invoice already imported from this record")

// FatalError aborts a run: the corpus could not be read or decoded.
type FatalError struct {
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("failed to load corpus %s: %v", e.Path, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ChunkCommitError aborts a run: a chunk's outer transaction did not commit.
// Chunks committed before it stay committed.
type ChunkCommitError struct {
	Chunk int
	Err   error
}

func (e *ChunkCommitError) Error() string {
	return fmt.Sprintf("failed to commit chunk %d: %v", e.Chunk, e.Err)
}

func (e *ChunkCommitError) Unwrap() error { return e.Err }

// RecordError is a persistence failure isolated to one record.
type RecordError struct {
	RecordID string `json:"record_id"`
	Chunk    int    `json:"chunk"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

func newRecordError(recordID string, chunk int, err error) *RecordError {
	return &RecordError{RecordID: recordID, Chunk: chunk, Err: err, Message: err.Error()}
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// IsFatal reports whether err must end the process with a failure status.
func IsFatal(err error) bool {
	var fatal *FatalError
	var commit *ChunkCommitError
	return errors.As(err, &fatal) || errors.As(err, &commit)
}
