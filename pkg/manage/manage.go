// Package manage serves rendered photos and renders uploads over HTTP.
package manage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/framemark"
	"github.com/tstromberg/framemark/pkg/layout"
	"github.com/tstromberg/framemark/pkg/meta"
	"github.com/tstromberg/framemark/pkg/place"
	"github.com/tstromberg/framemark/pkg/render"
)

// MaxUpload bounds the size of a multipart render request.
var MaxUpload int64 = 64 << 20

// Server renders uploaded photos and serves the output directory.
type Server struct {
	c       *framemark.Config
	engine  *render.Engine
	places  place.Lookup
	extract meta.BytesExtractor
	norm    meta.Normalizer
}

// New creates a new server. places may be nil.
func New(c *framemark.Config, e *render.Engine, places place.Lookup) *Server {
	return &Server{c: c, engine: e, places: places, extract: meta.Goexif{}}
}

// Handler routes POST /render to RenderHandler and everything else to the output directory.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /render", s.RenderHandler())
	mux.Handle("GET /", http.FileServer(http.Dir(s.c.OutDir)))
	return mux
}

// RenderHandler renders the multipart "photo" field and replies with the JPEG.
// Optional fields: "settings" (YAML), "style" (style name) and "logo" (custom logo file).
func (s *Server) RenderHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(MaxUpload); err != nil {
			http.Error(w, fmt.Sprintf("parse form: %v", err), http.StatusBadRequest)
			return
		}

		photo, err := formFile(r, "photo")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		settings, err := s.settings(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		c := s.norm.FromBytes(ctx, s.extract, photo)
		c = place.UpgradeWithin(ctx, s.places, c, s.c.LookupTimeout())

		res, err := s.engine.Render(ctx, render.Request{Source: photo, Settings: framemark.Apply(settings, c), Brand: c.Brand})
		if err != nil {
			klog.Errorf("render upload: %v", err)
			http.Error(w, err.Error(), status(err))
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(res.JPEG)))
		w.Header().Set("X-Banner-Height", strconv.Itoa(res.Plan.BannerPixels()))
		w.Header().Set("X-Banner-Scale", strconv.FormatFloat(res.Plan.Scale, 'f', 3, 64))
		if _, err := w.Write(res.JPEG); err != nil {
			klog.Warningf("write response: %v", err)
		}
	}
}

func (s *Server) settings(r *http.Request) (layout.Settings, error) {
	st, err := framemark.LoadSettings(s.c.SettingsPath)
	if err != nil {
		return st, fmt.Errorf("settings: %w", err)
	}

	if y := r.FormValue("settings"); y != "" {
		st, err = framemark.ParseUploadSettings([]byte(y))
		if err != nil {
			return st, fmt.Errorf("settings: %w", err)
		}
	}

	if name := r.FormValue("style"); name != "" {
		style, err := layout.ParseStyle(name)
		if err != nil {
			return st, err
		}
		st = st.WithStyle(style)
	}

	if r.MultipartForm != nil && len(r.MultipartForm.File["logo"]) > 0 {
		bs, err := formFile(r, "logo")
		if err != nil {
			return st, err
		}
		st = st.WithCustomLogo(bs)
	}
	if st.Logo == layout.LogoCustom && len(st.CustomLogo) == 0 {
		return st, errors.New("settings: logo is custom but no logo file was sent")
	}
	return st, nil
}

func formFile(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()
	bs, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return bs, nil
}

func status(err error) int {
	switch {
	case errors.Is(err, render.ErrSourceDecode):
		return http.StatusBadRequest
	case errors.Is(err, render.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
