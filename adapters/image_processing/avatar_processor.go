package image_processing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"

	"github.com/khoahotran/user-service/internal/application/service"
)

const (
	AvatarWidth  = 250
	AvatarHeight = 250
)

type avatarProcessor struct{}

// NewAvatarProcessor returns a processor that stretches any decodable image
// to AvatarWidth x AvatarHeight and re-encodes it as PNG.
func NewAvatarProcessor() service.ImageProcessor {
	return avatarProcessor{}
}

func (avatarProcessor) Normalize(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := imaging.Resize(img, AvatarWidth, AvatarHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
