//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

import "fmt"

func WriteImagePNG([]byte) error {
	return fmt.Errorf("clipboard image operations are not supported on this platform")
}

func ReadImagePNG() ([]byte, error) {
	return nil, fmt.Errorf("clipboard image operations are not supported on this platform")
}
