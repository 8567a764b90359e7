package compose

import (
	"testing"

	"github.com/salocin93/freesign-sub000/config"
	"github.com/salocin93/freesign-sub000/model"
	"github.com/salocin93/freesign-sub000/pagetrack"
)

func TestSelectProfile(t *testing.T) {
	tests := []struct {
		name string
		sig  DeviceSignal
		want ProfileKind
	}{
		{"desktop", DeviceSignal{ViewportWidth: 1440}, ProfileDesktop},
		{"touch", DeviceSignal{TouchPrimary: true, ViewportWidth: 1024}, ProfileMobile},
		{"narrow viewport", DeviceSignal{ViewportWidth: 400}, ProfileMobile},
		{"large document", DeviceSignal{ViewportWidth: 1440, EstimatedDocumentSize: "large"}, ProfilePerformance},
		{"large wins over touch", DeviceSignal{TouchPrimary: true, EstimatedDocumentSize: "large"}, ProfilePerformance},
		{"no signal", DeviceSignal{}, ProfileDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectProfile(tt.sig); got != tt.want {
				t.Errorf("SelectProfile(%+v) = %s, want %s", tt.sig, got, tt.want)
			}
		})
	}
}

func TestProfileConstants(t *testing.T) {
	desktop := ProfileFor(DeviceSignal{ViewportWidth: 1440}, nil)
	if desktop.ZoomStep != 0.25 || desktop.PanEnabled || desktop.Buffer != 2 {
		t.Errorf("Unexpected desktop profile: %+v", desktop)
	}

	mobile := ProfileFor(DeviceSignal{TouchPrimary: true}, nil)
	if mobile.ZoomStep != 0.1 || !mobile.PanEnabled || !mobile.AutoHideControls {
		t.Errorf("Unexpected mobile profile: %+v", mobile)
	}
	if got := mobile.DefaultSizes[model.ElementCheckbox]; got != (model.Size{Width: 32, Height: 32}) {
		t.Errorf("Expected enlarged mobile checkbox, got %+v", got)
	}

	perf := ProfileFor(DeviceSignal{EstimatedDocumentSize: "large"}, nil)
	if perf.Buffer != 1 || perf.InitialLoadCount != 1 || perf.PanEnabled {
		t.Errorf("Unexpected performance profile: %+v", perf)
	}

	// All profiles share the scale domain and element types.
	for _, p := range []Profile{desktop, mobile, perf} {
		if len(p.DefaultSizes) != 8 {
			t.Errorf("Profile %s missing default sizes: %d", p.Kind, len(p.DefaultSizes))
		}
	}
}

func TestProfileOverrides(t *testing.T) {
	overrides := &config.ProfilesConfig{
		Mobile: config.ProfileConfig{ZoomStep: 0.2, Buffer: 1},
	}

	mobile := ProfileFor(DeviceSignal{TouchPrimary: true}, overrides)
	if mobile.ZoomStep != 0.2 {
		t.Errorf("Expected overridden zoom step 0.2, got %v", mobile.ZoomStep)
	}
	if mobile.Buffer != 1 {
		t.Errorf("Expected overridden buffer 1, got %d", mobile.Buffer)
	}
	// Untouched constants keep their defaults.
	if mobile.RetryLimit != 2 {
		t.Errorf("Expected default retry limit 2, got %d", mobile.RetryLimit)
	}

	// Overrides for one profile do not leak into another.
	desktop := ProfileFor(DeviceSignal{ViewportWidth: 1440}, overrides)
	if desktop.ZoomStep != 0.25 {
		t.Errorf("Expected desktop zoom step unchanged, got %v", desktop.ZoomStep)
	}
}

func TestNewEngine(t *testing.T) {
	engine, requests := NewEngine(10, ProfileFor(DeviceSignal{ViewportWidth: 1440}, nil))

	if len(requests) != 3 {
		t.Errorf("Expected 3 initial render requests, got %d", len(requests))
	}
	if engine.Viewport.State().CurrentPage != 1 {
		t.Errorf("Expected engine to start on page 1")
	}
	if engine.Pages.Status(1) != pagetrack.StatusLoading {
		t.Errorf("Expected page 1 loading, got %s", engine.Pages.Status(1))
	}
}

func TestPageOrigin(t *testing.T) {
	profile := ProfileFor(DeviceSignal{ViewportWidth: 1440}, nil)
	engine, reqs := NewEngine(5, profile)

	// Page 1 sits at the margin.
	origin := engine.PageOrigin(1)
	if origin.X != profile.PageMargin || origin.Y != profile.PageMargin {
		t.Errorf("Expected page 1 origin at margin, got %+v", origin)
	}

	// Page 2 is offset by page 1's reserved height plus the gap.
	origin = engine.PageOrigin(2)
	wantY := profile.PageMargin + profile.DefaultPageHeight + profile.PageGap
	if origin.Y != wantY {
		t.Errorf("Expected page 2 origin y %v, got %v", wantY, origin.Y)
	}

	// A measured height replaces the default in the layout.
	engine.Pages.Complete(1, reqs[0].Epoch, 900)
	origin = engine.PageOrigin(2)
	wantY = profile.PageMargin + 900 + profile.PageGap
	if origin.Y != wantY {
		t.Errorf("Expected page 2 origin y %v after measurement, got %v", wantY, origin.Y)
	}

	// Zoom scales the stacked offsets.
	engine.Viewport.ZoomIn() // 1.25
	origin = engine.PageOrigin(2)
	wantY = profile.PageMargin + (900+profile.PageGap)*1.25
	if origin.Y != wantY {
		t.Errorf("Expected page 2 origin y %v at 1.25x, got %v", wantY, origin.Y)
	}
}

func TestEnginesDoNotShareState(t *testing.T) {
	profile := ProfileFor(DeviceSignal{TouchPrimary: true}, nil)
	a, _ := NewEngine(5, profile)
	b, _ := NewEngine(5, profile)

	a.Viewport.ZoomIn()
	a.Overlay.ArmType(model.ElementSignature)

	if b.Viewport.State().Scale != 1 {
		t.Error("Expected engine b's scale to be untouched")
	}
	if b.Overlay.Placement().ActiveType != "" {
		t.Error("Expected engine b's placement to be untouched")
	}
}
