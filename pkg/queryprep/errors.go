package queryprep

import "errors"

var (
	errEmptyQuery      = errors.New("query has no indexable elements after rank-token filtering")
	errTooManyElements = errors.New("query element count exceeds MaxMergePostings")
)
