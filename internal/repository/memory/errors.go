package memory

import "errors"

var errDuplicate = errors.New("memory: unique constraint violated")
