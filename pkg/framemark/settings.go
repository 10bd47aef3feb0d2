package framemark

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/layout"
)

// settingsFile is the YAML form of layout.Settings. Omitted fields keep their defaults.
type settingsFile struct {
	Style         *layout.Style       `yaml:"style,omitempty"`
	BlurIntensity *int                `yaml:"blur_intensity,omitempty"`
	Logo          layout.LogoChoice   `yaml:"logo,omitempty"`
	CustomLogo    string              `yaml:"custom_logo,omitempty"`
	LogoSide      *layout.Side        `yaml:"logo_side,omitempty"`
	AdaptiveText  bool                `yaml:"adaptive_text,omitempty"`
	Slots         map[string]slotFile `yaml:"slots,omitempty"`
}

type slotFile struct {
	Side  layout.Side `yaml:"side"`
	Line  int         `yaml:"line,omitempty"`
	Order int         `yaml:"order"`
	Label string      `yaml:"label,omitempty"`
	// Text replaces the metadata value for every photo.
	Text string `yaml:"text,omitempty"`
}

// LoadSettings reads render settings from a YAML file. An empty path or a
// missing file yields layout.DefaultSettings.
func LoadSettings(path string) (layout.Settings, error) {
	s := layout.DefaultSettings()
	if path == "" {
		return s, nil
	}

	bs, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		klog.V(1).Infof("%s does not exist, using default settings", path)
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read: %w", err)
	}
	return ParseSettings(bs, filepath.Dir(path))
}

// ErrLogoPath is returned for settings from an untrusted source that name a custom_logo file.
var ErrLogoPath = errors.New("custom_logo is not accepted here, send the logo file instead")

// ParseSettings decodes YAML settings. Relative custom_logo paths are resolved against dir.
func ParseSettings(bs []byte, dir string) (layout.Settings, error) {
	return parseSettings(bs, dir, false)
}

// ParseUploadSettings decodes YAML settings sent by a client. Such settings
// may select a custom logo but never name a file: the caller supplies the
// bytes with WithCustomLogo.
func ParseUploadSettings(bs []byte) (layout.Settings, error) {
	return parseSettings(bs, "", true)
}

func parseSettings(bs []byte, dir string, upload bool) (layout.Settings, error) {
	s := layout.DefaultSettings()

	var sf settingsFile
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("yaml: %w", err)
	}

	if sf.Style != nil {
		s.Style = *sf.Style
	}
	if sf.BlurIntensity != nil {
		s.BlurIntensity = *sf.BlurIntensity
	}
	if sf.LogoSide != nil {
		s.LogoSide = *sf.LogoSide
	}
	s.AdaptiveText = sf.AdaptiveText
	if sf.Logo != "" {
		s.Logo = sf.Logo
	}

	switch {
	case sf.CustomLogo != "" && upload:
		return s, ErrLogoPath
	case sf.CustomLogo != "":
		p := sf.CustomLogo
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		logo, err := os.ReadFile(p)
		if err != nil {
			return s, fmt.Errorf("custom logo: %w", err)
		}
		s = s.WithCustomLogo(logo)
	case s.Logo == layout.LogoCustom && !upload:
		return s, errors.New("logo is custom but custom_logo is not set")
	}

	for name, sl := range sf.Slots {
		id, err := layout.ParseField(name)
		if err != nil {
			return s, fmt.Errorf("slots: %w", err)
		}
		line := sl.Line
		if line == 0 {
			line = 1
		}
		s.Slots[id].Side = sl.Side
		s.Slots[id].Line = line
		s.Slots[id].Order = sl.Order
		if sl.Label != "" {
			s.Slots[id].Label = sl.Label
		}
		s.Slots[id].Text = sl.Text
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// SaveSettings writes s as YAML. A custom logo is written alongside the settings file.
func SaveSettings(path string, s layout.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	style, side, blur := s.Style, s.LogoSide, s.BlurIntensity
	sf := settingsFile{
		Style:         &style,
		BlurIntensity: &blur,
		Logo:          s.Logo,
		LogoSide:      &side,
		AdaptiveText:  s.AdaptiveText,
		Slots:         map[string]slotFile{},
	}
	for _, sl := range s.Slots {
		sf.Slots[sl.ID.String()] = slotFile{Side: sl.Side, Line: sl.Line, Order: sl.Order, Label: sl.Label, Text: sl.Text}
	}

	if s.Logo == layout.LogoCustom && len(s.CustomLogo) > 0 {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := base + "-logo" + logoExt(s.CustomLogo)
		if err := os.WriteFile(filepath.Join(filepath.Dir(path), name), s.CustomLogo, 0o600); err != nil {
			return fmt.Errorf("write logo: %w", err)
		}
		sf.CustomLogo = name
	}

	bs, err := yaml.Marshal(&sf)
	if err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, bs, 0o600)
}

func logoExt(bs []byte) string {
	if bytes.Contains(bytes.ToLower(bs[:min(len(bs), 512)]), []byte("<svg")) {
		return ".svg"
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(bs)); err == nil {
		return "." + format
	}
	return ".img"
}
