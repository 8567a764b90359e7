// Package compose selects an interaction profile for a device signal and
// wires the shared engine components together. The three profiles differ
// only in constants; none of them gets its own coordinate or placement
// logic.
package compose

import (
	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/geometry"
	"github.com/salocin93/freesign-sub000/model"
	"github.com/salocin93/freesign-sub000/overlay"
	"github.com/salocin93/freesign-sub000/pagetrack"
	"github.com/salocin93/freesign-sub000/viewport"
)

// ProfileKind names the three interaction profiles.
type ProfileKind string

const (
	ProfileDesktop     ProfileKind = "desktop"
	ProfileMobile      ProfileKind = "mobile"
	ProfilePerformance ProfileKind = "performance"
)

// Below this viewport width a non-touch device still gets the mobile
// profile.
const mobileWidthCutoff = 768.0

// DeviceSignal is what the host knows about the viewing device, supplied
// once at composition time and again on resize or orientation change.
type DeviceSignal struct {
	TouchPrimary          bool    `json:"touch_primary"`
	ViewportWidth         float64 `json:"viewport_width"`
	EstimatedDocumentSize string  `json:"estimated_document_size"` // normal, large
}

// Profile carries every constant that varies between the viewer variants.
type Profile struct {
	Kind              ProfileKind                      `json:"kind"`
	ZoomStep          float64                          `json:"zoom_step"`
	Buffer            int                              `json:"buffer"`
	InitialLoadCount  int                              `json:"initial_load_count"`
	RetryLimit        int                              `json:"retry_limit"`
	PanEnabled        bool                             `json:"pan_enabled"`
	AutoHideControls  bool                             `json:"auto_hide_controls"`
	DragThreshold     float64                          `json:"-"`
	DefaultPageHeight float64                          `json:"-"`
	PageGap           float64                          `json:"-"`
	PageMargin        float64                          `json:"-"`
	DefaultSizes      map[model.ElementType]model.Size `json:"-"`
}

// SelectProfile maps a device signal to a profile kind. Large documents win
// over everything else; touch-primary or narrow viewports get the mobile
// profile.
func SelectProfile(sig DeviceSignal) ProfileKind {
	if sig.EstimatedDocumentSize == "large" {
		return ProfilePerformance
	}
	if sig.TouchPrimary || (sig.ViewportWidth > 0 && sig.ViewportWidth < mobileWidthCutoff) {
		return ProfileMobile
	}
	return ProfileDesktop
}

func defaultSizes() map[model.ElementType]model.Size {
	return map[model.ElementType]model.Size{
		model.ElementSignature: {Width: 200, Height: 80},
		model.ElementDate:      {Width: 140, Height: 40},
		model.ElementText:      {Width: 160, Height: 40},
		model.ElementCheckbox:  {Width: 24, Height: 24},
		model.ElementName:      {Width: 160, Height: 40},
		model.ElementEmail:     {Width: 200, Height: 40},
		model.ElementAddress:   {Width: 240, Height: 40},
		model.ElementTitle:     {Width: 160, Height: 40},
	}
}

func baseProfile(kind ProfileKind) Profile {
	p := Profile{
		Kind:              kind,
		ZoomStep:          0.25,
		Buffer:            2,
		InitialLoadCount:  3,
		RetryLimit:        2,
		DragThreshold:     3,
		DefaultPageHeight: 1100,
		PageGap:           16,
		PageMargin:        24,
		DefaultSizes:      defaultSizes(),
	}

	switch kind {
	case ProfileMobile:
		p.ZoomStep = 0.1
		p.InitialLoadCount = 2
		p.PanEnabled = true
		p.AutoHideControls = true
		p.DragThreshold = 8
		// Touch targets need a bigger minimum.
		p.DefaultSizes[model.ElementCheckbox] = model.Size{Width: 32, Height: 32}
	case ProfilePerformance:
		p.Buffer = 1
		p.InitialLoadCount = 1
	}
	return p
}

// ProfileFor builds the profile for a device signal, applying any non-zero
// overrides from configuration.
func ProfileFor(sig DeviceSignal, overrides *config.ProfilesConfig) Profile {
	kind := SelectProfile(sig)
	p := baseProfile(kind)

	if overrides == nil {
		return p
	}
	var o config.ProfileConfig
	switch kind {
	case ProfileMobile:
		o = overrides.Mobile
	case ProfilePerformance:
		o = overrides.Performance
	default:
		o = overrides.Desktop
	}
	if o.ZoomStep > 0 {
		p.ZoomStep = o.ZoomStep
	}
	if o.Buffer > 0 {
		p.Buffer = o.Buffer
	}
	if o.InitialLoadCount > 0 {
		p.InitialLoadCount = o.InitialLoadCount
	}
	if o.RetryLimit > 0 {
		p.RetryLimit = o.RetryLimit
	}
	if o.DefaultPageHeight > 0 {
		p.DefaultPageHeight = o.DefaultPageHeight
	}
	if o.PageGap > 0 {
		p.PageGap = o.PageGap
	}
	return p
}

// Engine is one composed document view: viewport, page tracker and overlay
// resolver sharing a single profile. One engine per open view; engines never
// share mutable state.
type Engine struct {
	Profile  Profile
	Viewport *viewport.Controller
	Pages    *pagetrack.Tracker
	Overlay  *overlay.Resolver
}

// NewEngine wires the components for a document with pageCount pages. The
// returned requests cover the initial page loads.
func NewEngine(pageCount int, profile Profile) (*Engine, []pagetrack.RenderRequest) {
	tracker, requests := pagetrack.New(
		pageCount,
		profile.Buffer,
		profile.InitialLoadCount,
		profile.RetryLimit,
		profile.DefaultPageHeight,
	)
	return &Engine{
		Profile:  profile,
		Viewport: viewport.NewController(pageCount, profile.ZoomStep, profile.PanEnabled),
		Pages:    tracker,
		Overlay:  overlay.NewResolver(profile.DefaultSizes, profile.DragThreshold),
	}, requests
}

// PageOrigin computes the current on-screen origin of a page: pages stack
// vertically, separated by the profile's gap, offset by the accumulated pan.
// Reserved heights come from the tracker so placeholder pages keep their
// last measured height and nothing shifts when a page reloads.
func (e *Engine) PageOrigin(page int) geometry.Point {
	state := e.Viewport.State()

	y := e.Profile.PageMargin
	for p := 1; p < page; p++ {
		y += (e.Pages.HeightFor(p) + e.Profile.PageGap) * state.Scale
	}
	return geometry.Point{
		X: e.Profile.PageMargin + state.Pan.X,
		Y: y + state.Pan.Y,
	}
}
