//go:build !unix

package prompt

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("file locking not supported on this platform")

func tryLock(*os.File) error { return errUnsupported }

func unlock(*os.File) error { return nil }
