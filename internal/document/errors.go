package document

import "errors"

var ErrDanglingReference = errors.New("dangling reference")
