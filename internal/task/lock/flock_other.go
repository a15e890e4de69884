//go:build !unix

package lock

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("advisory file locks are not supported on this platform")

func flockExclusive(*os.File) error { return errUnsupported }

func funlock(*os.File) error { return errUnsupported }
