package metadata

import (
	"errors"

	"squeeze/pkg/imgutil"
)

// ErrNotImage is returned for data that isn't a recognised image container.
var ErrNotImage = errors.New("not a recognised image")

// Extract reads the metadata profiles carried by an encoded image. Containers
// without metadata support yield empty profiles.
func Extract(data []byte) (Profiles, error) {
	switch imgutil.SniffBytes(data) {
	case imgutil.KindJPEG:
		return extractJPEG(data)
	case imgutil.KindPNG:
		return extractPNG(data)
	case imgutil.KindWebP:
		return extractWebP(data)
	case imgutil.KindUnknown:
		return Profiles{}, ErrNotImage
	default:
		return Profiles{}, nil
	}
}

// Embed replaces whatever metadata data carries with p. Containers the
// pipeline can't annotate (GIF, TIFF, AVIF, BMP) are returned unchanged.
func Embed(data []byte, p Profiles) ([]byte, error) {
	switch imgutil.SniffBytes(data) {
	case imgutil.KindJPEG:
		return embedJPEG(data, p)
	case imgutil.KindPNG:
		return embedPNG(data, p)
	case imgutil.KindWebP:
		return embedWebP(data, p)
	case imgutil.KindUnknown:
		return nil, ErrNotImage
	default:
		return data, nil
	}
}

// CanEmbed reports whether Embed rewrites the metadata of data's container.
// For any other container Embed returns data untouched.
func CanEmbed(data []byte) bool {
	switch imgutil.SniffBytes(data) {
	case imgutil.KindJPEG, imgutil.KindPNG, imgutil.KindWebP:
		return true
	default:
		return false
	}
}
