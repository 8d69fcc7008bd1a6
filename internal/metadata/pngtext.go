package metadata

import (
	"bytes"
	"strings"

	"squeeze/pkg/imgutil"
)

// pngTextCategories classifies the keywords of PNG text chunks. A tIME chunk
// counts as a timestamp.
func pngTextCategories(data []byte) map[string][]string {
	chunks, err := imgutil.ReadPNGChunks(data)
	if err != nil {
		return nil
	}

	found := map[string][]string{}
	for _, c := range chunks {
		switch c.FourCC {
		case "tEXt", "zTXt", "iTXt":
			key := pngTextKey(c.Data)
			if key == "" || key == pngXMPKeyword {
				continue
			}
			if category := categoryForKey(key); category != "" {
				found[category] = append(found[category], c.FourCC+":"+key)
			}
		case "tIME":
			found[CategoryTimestamp] = append(found[CategoryTimestamp], "tIME")
		}
	}
	return found
}

func pngTextKey(data []byte) string {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 {
		return ""
	}
	return string(data[:idx])
}

func categoryForKey(key string) string {
	lower := strings.ToLower(key)
	switch {
	case strings.Contains(lower, "gps") || strings.Contains(lower, "latitude") || strings.Contains(lower, "longitude"):
		return CategoryGPS
	case strings.Contains(lower, "model") || strings.Contains(lower, "make"):
		return CategoryDevice
	case strings.Contains(lower, "date") || strings.Contains(lower, "time"):
		return CategoryTimestamp
	case strings.Contains(lower, "serial"):
		return CategoryIdentifier
	}
	return ""
}
