package meta

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"k8s.io/klog/v2"
)

// Goexif decodes EXIF in-process, so it also works on uploaded bytes.
type Goexif struct{}

// Extract reads tags from a file on disk.
func (Goexif) Extract(ctx context.Context, path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return decodeExif(ctx, f)
}

// ExtractBytes reads tags from an in-memory image.
func (Goexif) ExtractBytes(ctx context.Context, bs []byte) (Tags, error) {
	return decodeExif(ctx, bytes.NewReader(bs))
}

type tagKind int

const (
	asText tagKind = iota
	asDecimal
	asFraction
	asTriple
)

var goexifFields = []struct {
	name exif.FieldName
	kind tagKind
}{
	{exif.Make, asText},
	{exif.Model, asText},
	{exif.LensModel, asText},
	{exif.FocalLength, asDecimal},
	{exif.FNumber, asDecimal},
	{exif.ISOSpeedRatings, asText},
	{exif.ExposureTime, asFraction},
	{exif.DateTimeOriginal, asText},
	{exif.DateTime, asText},
	{exif.GPSLatitude, asTriple},
	{exif.GPSLatitudeRef, asText},
	{exif.GPSLongitude, asTriple},
	{exif.GPSLongitudeRef, asText},
}

func decodeExif(ctx context.Context, r io.Reader) (Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x, err := exif.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("exif decode: %w", err)
	}

	t := Tags{}
	for _, f := range goexifFields {
		tag, err := x.Get(f.name)
		if err != nil {
			klog.V(2).Infof("no %s: %v", f.name, err)
			continue
		}
		v, err := tagString(tag, f.kind)
		if err != nil {
			klog.V(1).Infof("unable to read %s: %v", f.name, err)
			continue
		}
		if v != "" {
			t[string(f.name)] = v
		}
	}
	return t, nil
}

func tagString(tag *tiff.Tag, kind tagKind) (string, error) {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		return strings.TrimRight(strings.TrimSpace(s), "\x00"), err
	case tiff.IntVal:
		n, err := tag.Int(0)
		return strconv.Itoa(n), err
	case tiff.FloatVal:
		f, err := tag.Float(0)
		return strconv.FormatFloat(f, 'f', -1, 64), err
	case tiff.RatVal:
	default:
		return "", fmt.Errorf("unsupported format %v", tag.Format())
	}

	switch kind {
	case asTriple:
		parts := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count) && i < 3; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%d/%d", num, den))
		}
		return strings.Join(parts, ","), nil
	case asFraction:
		num, den, err := tag.Rat2(0)
		if err != nil {
			return "", err
		}
		if den == 0 {
			return "", fmt.Errorf("zero denominator")
		}
		if num == 1 || num == 0 || den == 1 {
			if den == 1 {
				return strconv.FormatInt(num, 10), nil
			}
			return fmt.Sprintf("%d/%d", num, den), nil
		}
		if num < den {
			return fmt.Sprintf("1/%d", (den+num/2)/num), nil
		}
		return strconv.FormatFloat(float64(num)/float64(den), 'f', -1, 64), nil
	default:
		num, den, err := tag.Rat2(0)
		if err != nil {
			return "", err
		}
		if den == 0 {
			return "", fmt.Errorf("zero denominator")
		}
		return strconv.FormatFloat(float64(num)/float64(den), 'f', -1, 64), nil
	}
}
