package dataset

import (
	"errors"
	"fmt"
)

type LoadReason string

const (
	ReasonFetchFailed LoadReason = "fetch_failed"
	ReasonEmptyFile   LoadReason = "empty_file"
	ReasonNoValidRows LoadReason = "no_valid_rows"
)

var (
	errNoDataRows   = errors.New("file has no data rows (header only or empty)")
	errNoValidItems = errors.New("no valid quiz rows found; check the file format and column settings")
)

// LoadError is the single failure type of data ingestion. A session never
// starts when loading returns one.
type LoadError struct {
	Reason LoadReason
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load quiz data (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("load quiz data from %s (%s): %v", e.Source, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err carries a LoadError and returns it.
func IsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
