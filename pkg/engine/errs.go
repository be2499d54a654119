package engine

import "errors"

var (
	// ErrOutputWrite indicates the report stream rejected a write. Apart
	// from a cancelled context, this is the only error GenerateReport can
	// return; everything upstream of the writer degrades to absent cells
	// instead of failing.
	ErrOutputWrite = errors.New("engine: report output write failed")
)
