package meta

import (
	"context"
	"fmt"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// exiftoolKeys are the fields copied out of exiftool's output.
var exiftoolKeys = []string{
	"Make", "Model", "LensModel", "Lens", "LensID", "LensInfo",
	"FocalLength", "FNumber", "ApertureValue", "Aperture",
	"ISO", "ISOSpeedRatings", "PhotographicSensitivity",
	"ExposureTime", "ShutterSpeed", "ShutterSpeedValue",
	"DateTimeOriginal", "CreateDate", "DateTimeDigitized", "DateTime",
	"GPSLatitude", "GPSLatitudeRef", "GPSLongitude", "GPSLongitudeRef", "GPSPosition",
}

// Exiftool extracts tags by driving a long-lived exiftool process.
type Exiftool struct {
	et *exiftool.Exiftool
}

// NewExiftool starts exiftool. Coordinates are requested as signed decimals.
func NewExiftool() (*Exiftool, error) {
	et, err := exiftool.NewExiftool(exiftool.CoordFormant("%+.6f"))
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &Exiftool{et: et}, nil
}

// Extract reads tags for a single file.
func (e *Exiftool) Extract(ctx context.Context, path string) (Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fis := e.et.ExtractMetadata(path)
	fi := fis[0]
	if fi.Err != nil {
		return nil, fmt.Errorf("extract fail for %q: %w", path, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(3).Infof("%q=%v", k, v)
	}

	t := Tags{}
	for _, k := range exiftoolKeys {
		v, err := fi.GetString(k)
		if err != nil {
			klog.V(2).Infof("no %s for %s: %v", k, path, err)
			continue
		}
		t[k] = v
	}
	return t, nil
}

// Close stops the exiftool process.
func (e *Exiftool) Close() error {
	return e.et.Close()
}
