package metadata

import (
	"fmt"
	"strings"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

func buildInsights(values map[string]interface{}) []string {
	var insights []string

	if gps := gpsInsight(values); gps != "" {
		insights = append(insights, gps, "Exact coordinates can reveal home, workplace, or travel patterns.")
	}
	if device := deviceInsight(values); device != "" {
		insights = append(insights, device)
	}
	if ts := stringValue(values, "DateTimeOriginal"); ts != "" {
		insights = append(insights, fmt.Sprintf("Captured: %s (timezone unknown)", replaceFirstN(ts, ":", "-", 2)))
	}
	for key := range values {
		if strings.Contains(strings.ToLower(key), "serial") {
			insights = append(insights, "Unique device identifiers (serial numbers) are present.")
			break
		}
	}
	return insights
}

func gpsInsight(values map[string]interface{}) string {
	lat, okLat := coordinate(values["GPSLatitude"])
	lon, okLon := coordinate(values["GPSLongitude"])
	if !okLat || !okLon {
		return ""
	}
	if stringValue(values, "GPSLatitudeRef") == "S" {
		lat = -lat
	}
	if stringValue(values, "GPSLongitudeRef") == "W" {
		lon = -lon
	}
	return fmt.Sprintf("Approx location: %.5f, %.5f", lat, lon)
}

// coordinate converts a degrees/minutes/seconds rational triple.
func coordinate(v interface{}) (float64, bool) {
	rats, ok := v.([]exifcommon.Rational)
	if !ok || len(rats) == 0 {
		return 0, false
	}
	weights := []float64{1, 60, 3600}
	total := 0.0
	for i, r := range rats {
		if i >= len(weights) {
			break
		}
		if r.Denominator == 0 {
			return 0, false
		}
		total += float64(r.Numerator) / float64(r.Denominator) / weights[i]
	}
	return total, true
}

func deviceInsight(values map[string]interface{}) string {
	device := strings.TrimSpace(stringValue(values, "Make") + " " + stringValue(values, "Model"))
	if device == "" {
		return ""
	}
	msg := "Device: " + device
	if kind := inferDeviceType(strings.ToLower(device)); kind != "" {
		msg += " (" + kind + ")"
	}
	return msg
}

func stringValue(values map[string]interface{}, key string) string {
	s, _ := values[key].(string)
	return strings.TrimSpace(s)
}

func inferDeviceType(device string) string {
	switch {
	case strings.Contains(device, "iphone"),
		strings.Contains(device, "pixel"),
		strings.Contains(device, "galaxy"),
		strings.Contains(device, "android"):
		return "smartphone"
	case strings.Contains(device, "ipad"),
		strings.Contains(device, "tablet"):
		return "tablet"
	case strings.Contains(device, "gopro"):
		return "action camera"
	case strings.Contains(device, "dji"):
		return "drone"
	case strings.Contains(device, "canon"),
		strings.Contains(device, "nikon"),
		strings.Contains(device, "sony"),
		strings.Contains(device, "fujifilm"),
		strings.Contains(device, "panasonic"),
		strings.Contains(device, "olympus"),
		strings.Contains(device, "leica"):
		return "camera"
	default:
		return ""
	}
}

func replaceFirstN(s, old, new string, n int) string {
	for i := 0; i < n; i++ {
		idx := strings.Index(s, old)
		if idx < 0 {
			break
		}
		s = s[:idx] + new + s[idx+len(old):]
	}
	return s
}
