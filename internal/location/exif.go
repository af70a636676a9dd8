package location

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// ErrMalformedGPS is returned when GPS tags are missing, partial or out of range.
var ErrMalformedGPS = errors.New("malformed GPS metadata")

// DMSToDecimal converts a degrees/minutes/seconds triplet to decimal degrees,
// negating the result for the southern and western hemispheres.
func DMSToDecimal(dms [3]float64, ref string) float64 {
	dd := dms[0] + dms[1]/60 + dms[2]/3600
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		dd = -dd
	}
	return dd
}

// ReadGPS extracts decimal latitude and longitude from the image's EXIF GPS tags.
// Both coordinates must be present and well formed.
func ReadGPS(path string) (lat, lon float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	// goexif can panic on truncated files.
	defer func() {
		if r := recover(); r != nil {
			lat, lon, err = 0, 0, fmt.Errorf("%w: %v", ErrMalformedGPS, r)
		}
	}()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return 0, 0, fmt.Errorf("failed to decode exif: %w", err)
	}

	lat, err = coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef, "N", "S", 90)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lon, err = coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef, "E", "W", 180)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}

	return lat, lon, nil
}

func coordinate(x *exif.Exif, field, refField exif.FieldName, positive, negative string, limit float64) (float64, error) {
	dms, err := dmsTag(x, field)
	if err != nil {
		return 0, err
	}

	refTag, err := x.Get(refField)
	if err != nil {
		return 0, fmt.Errorf("%w: %s missing", ErrMalformedGPS, refField)
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedGPS, refField, err)
	}
	ref = strings.ToUpper(strings.Trim(ref, "\x00 "))
	if ref != positive && ref != negative {
		return 0, fmt.Errorf("%w: %s has unexpected value %q", ErrMalformedGPS, refField, ref)
	}

	dd := DMSToDecimal(dms, ref)
	if math.IsNaN(dd) || math.Abs(dd) > limit {
		return 0, fmt.Errorf("%w: %s out of range: %f", ErrMalformedGPS, field, dd)
	}
	return dd, nil
}

func dmsTag(x *exif.Exif, field exif.FieldName) ([3]float64, error) {
	var dms [3]float64

	tag, err := x.Get(field)
	if err != nil {
		return dms, fmt.Errorf("%w: %s missing", ErrMalformedGPS, field)
	}
	if tag.Count < 3 {
		return dms, fmt.Errorf("%w: %s has %d components", ErrMalformedGPS, field, tag.Count)
	}

	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return dms, fmt.Errorf("%w: %s[%d]: %v", ErrMalformedGPS, field, i, err)
		}
		if den == 0 || num < 0 || den < 0 {
			return dms, fmt.Errorf("%w: %s[%d] is %d/%d", ErrMalformedGPS, field, i, num, den)
		}
		dms[i] = float64(num) / float64(den)
	}
	return dms, nil
}
