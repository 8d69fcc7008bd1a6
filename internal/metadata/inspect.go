package metadata

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"squeeze/pkg/imgutil"
)

// Detail groups the tag values found for one privacy category.
type Detail struct {
	Category string
	Values   []string
}

// Report summarises the privacy-relevant metadata of one file.
type Report struct {
	Details  []Detail
	Insights []string
	HasXMP   bool
	HasIPTC  bool
}

// Leaks counts the values that AllExceptSensitive would remove.
func (r Report) Leaks() int {
	n := 0
	for _, d := range r.Details {
		if d.Category == CategoryGPS || d.Category == CategoryIdentifier {
			n += len(d.Values)
		}
	}
	return n
}

const (
	CategoryGPS        = "GPS"
	CategoryDevice     = "Device Model"
	CategoryTimestamp  = "Timestamp"
	CategoryIdentifier = "Identifier"
)

// Inspect scans rs for EXIF tags and the presence of IPTC and XMP blocks.
func Inspect(rs io.ReadSeeker) (Report, error) {
	var report Report

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return report, err
	}
	data, err := io.ReadAll(rs)
	if err != nil {
		return report, err
	}
	if p, err := Extract(data); err == nil {
		report.HasXMP = len(p.XMP) > 0
		report.HasIPTC = len(p.IPTC) > 0
	}

	found := map[string][]string{}
	if imgutil.SniffBytes(data) == imgutil.KindPNG {
		for category, keys := range pngTextCategories(data) {
			found[category] = append(found[category], keys...)
		}
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return report, err
	}
	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) || errorsIsNoExif(err) {
			report.Details = details(found)
			return report, nil
		}
		return report, err
	}

	values := map[string]interface{}{}
	for _, tag := range tags {
		name := tag.TagName
		formatted := fmt.Sprintf("%s=%v", name, tag.Value)
		if _, seen := values[name]; !seen {
			values[name] = tag.Value
		}

		switch {
		case strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS"):
			found[CategoryGPS] = append(found[CategoryGPS], formatted)
		case name == "Make" || name == "Model" || name == "CameraModelName" || name == "LensModel":
			found[CategoryDevice] = append(found[CategoryDevice], formatted)
		case name == "DateTimeOriginal" || name == "DateTimeDigitized" || name == "DateTime":
			found[CategoryTimestamp] = append(found[CategoryTimestamp], formatted)
		case strings.Contains(strings.ToLower(name), "serial") || name == "CameraOwnerName" || name == "ImageUniqueID":
			found[CategoryIdentifier] = append(found[CategoryIdentifier], formatted)
		}
	}

	report.Details = details(found)
	report.Insights = buildInsights(values)

	return report, nil
}

func details(found map[string][]string) []Detail {
	categories := make([]string, 0, len(found))
	for c := range found {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	out := make([]Detail, 0, len(categories))
	for _, c := range categories {
		out = append(out, Detail{Category: c, Values: found[c]})
	}
	return out
}

func errorsIsNoExif(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
