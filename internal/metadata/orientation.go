package metadata

import (
	exif "github.com/dsoprea/go-exif/v3"
)

// ReadOrientation returns the IFD0 orientation (1..8) of an EXIF payload, or 1
// when absent or unreadable.
func ReadOrientation(raw []byte) int {
	if len(raw) == 0 {
		return 1
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return 1
	}

	for _, tag := range tags {
		if tag.TagId != tagOrientation || tag.IfdPath != "IFD" {
			continue
		}
		if values, ok := tag.Value.([]uint16); ok && len(values) > 0 {
			if v := int(values[0]); v >= 1 && v <= 8 {
				return v
			}
		}
		return 1
	}
	return 1
}
