package service

import "io"

// ImageProcessor turns an uploaded image into the stored avatar format.
type ImageProcessor interface {
	Normalize(r io.Reader) ([]byte, error)
}
