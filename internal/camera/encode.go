package camera

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	_ "image/png"
)

// JPEG qualities used for the two screening loops
const (
	DetectionQuality = 80
	PositionQuality  = 50
)

// ErrNotImage is returned for data that is not a decodable image
var ErrNotImage = errors.New("not an image")

// IsImage reports whether data sniffs as an image
func IsImage(data []byte) bool {
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

// Decode returns the image in data
func Decode(data []byte) (image.Image, error) {
	if !IsImage(data) {
		return nil, ErrNotImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return img, nil
}

// EncodeDataURL re-encodes a frame as a JPEG data URL at the given quality
func EncodeDataURL(frame []byte, quality int) (string, error) {
	img, err := Decode(frame)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
