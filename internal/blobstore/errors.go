package blobstore

import "errors"

var errStoreClosed = errors.New("blobstore: store is closed")
