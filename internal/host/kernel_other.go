//go:build !linux

package host

import (
	"errors"
	"runtime"
)

func kernelRelease() (string, error) {
	return "", errors.New("kernel release is only available on linux, running on " + runtime.GOOS)
}
