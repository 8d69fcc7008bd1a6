// Package metadata filters EXIF/IPTC/XMP profiles according to a copy mode and
// moves them in and out of JPEG, PNG and WebP containers.
package metadata

import (
	"errors"
	"fmt"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// CopyMode selects which metadata survives into the output.
type CopyMode int

const (
	CopyNone CopyMode = iota
	CopyAll
	CopyAllExceptSensitive
)

func (m CopyMode) String() string {
	switch m {
	case CopyAll:
		return "all"
	case CopyAllExceptSensitive:
		return "all-except-sensitive"
	default:
		return "none"
	}
}

// ParseCopyMode is the inverse of String.
func ParseCopyMode(s string) (CopyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "strip":
		return CopyNone, nil
	case "all":
		return CopyAll, nil
	case "all-except-sensitive", "sensitive", "safe":
		return CopyAllExceptSensitive, nil
	}
	return CopyNone, fmt.Errorf("unknown metadata mode %q", s)
}

// Profiles holds the raw metadata blocks of one image. Exif is a TIFF-structured
// payload without the "Exif\0\0" prefix, IPTC is a Photoshop image resource
// block and XMP is the bare XML packet.
type Profiles struct {
	Exif []byte
	IPTC []byte
	XMP  []byte
}

// Empty reports whether no profile is present.
func (p *Profiles) Empty() bool {
	return p == nil || (len(p.Exif) == 0 && len(p.IPTC) == 0 && len(p.XMP) == 0)
}

const (
	tagOrientation        = 0x0112
	tagMakerNote          = 0x927c
	tagUserComment        = 0x9286
	tagCameraOwnerName    = 0xa430
	tagBodySerialNumber   = 0xa431
	tagLensSerialNumber   = 0xa435
	tagCameraSerialNumber = 0xc62f
	tagImageUniqueID      = 0xa420

	tagExifIfdPointer = 0x8769
	tagGPSIfdPointer  = 0x8825
)

// Orientation is normalized into the pixels, so the tag never travels.
var alwaysSkip = []uint16{tagOrientation}

var sensitive = []uint16{
	tagMakerNote,
	tagUserComment,
	tagCameraOwnerName,
	tagBodySerialNumber,
	tagLensSerialNumber,
	tagCameraSerialNumber,
	tagImageUniqueID,
}

// Apply copies src into dst according to mode. A missing source profile leaves
// the destination profile of that type empty. A source EXIF block that can't
// be rebuilt is dropped and the parse error returned; the other profiles are
// still applied.
func Apply(src, dst *Profiles, mode CopyMode) error {
	*dst = Profiles{}
	if src == nil || mode == CopyNone {
		return nil
	}

	var exifErr error
	if len(src.Exif) > 0 {
		drop := alwaysSkip
		dropGPS := false
		if mode == CopyAllExceptSensitive {
			drop = append(append([]uint16{}, alwaysSkip...), sensitive...)
			dropGPS = true
		}
		dst.Exif, exifErr = filterExif(src.Exif, drop, dropGPS)
	}

	// IPTC is not filtered in sensitive mode.
	dst.IPTC = clone(src.IPTC)

	// XMP can mirror GPS and owner fields and is not filtered tag by tag.
	if mode == CopyAll {
		dst.XMP = clone(src.XMP)
	}

	return exifErr
}

func filterExif(raw []byte, drop []uint16, dropGPS bool) ([]byte, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, raw)
	if err != nil {
		return nil, fmt.Errorf("parse exif: %w", err)
	}

	rootIb := exif.NewIfdBuilderFromExistingChain(index.RootIfd)
	builders := []*exif.IfdBuilder{rootIb}
	if exifIb, err := rootIb.ChildWithTagId(tagExifIfdPointer); err == nil && exifIb != nil {
		builders = append(builders, exifIb)
	}

	for _, ib := range builders {
		for _, tagID := range drop {
			if err := deleteTag(ib, tagID); err != nil {
				return nil, err
			}
		}
	}
	if dropGPS {
		if err := deleteTag(rootIb, tagGPSIfdPointer); err != nil {
			return nil, err
		}
	}

	out, err := exif.NewIfdByteEncoder().EncodeToExif(rootIb)
	if err != nil {
		return nil, fmt.Errorf("encode exif: %w", err)
	}
	return out, nil
}

func deleteTag(ib *exif.IfdBuilder, tagID uint16) error {
	if _, err := ib.DeleteAll(tagID); err != nil && !errors.Is(err, exif.ErrTagEntryNotFound) {
		return fmt.Errorf("delete tag 0x%04x: %w", tagID, err)
	}
	return nil
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
