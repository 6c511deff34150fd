package postingstore

import (
	"errors"
	"os"
)

var (
	errShortFile           = errors.New("posting store file shorter than footer")
	errBadMagic            = errors.New("posting store footer magic mismatch")
	errRecordCountMismatch = errors.New("posting store footer record count mismatch")
)

func openFile(path string) (*os.File, error) {
	return os.Open(path)
}
