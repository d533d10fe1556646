// Package meettest provides a scripted page surface for tests that exercise
// the automation flows without a browser.
package meettest

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeSurface implements meet.Surface with overridable function fields. The
// zero value serves a static page; tests set fields for anything fancier.
type FakeSurface struct {
	ID string

	LocationFn func(ctx context.Context) (string, error)
	HTMLFn     func(ctx context.Context) (string, error)
	EvalFn     func(ctx context.Context, expr string, out any) error
	NavigateFn func(ctx context.Context, rawurl string) error

	mu          sync.Mutex
	location    string
	html        string
	navigations []string
	evals       []string
}

// NewFakeSurface returns a fake surface serving the given location and HTML.
func NewFakeSurface(id, location, html string) *FakeSurface {
	return &FakeSurface{ID: id, location: location, html: html}
}

// TargetID implements meet.Surface.
func (s *FakeSurface) TargetID() string { return s.ID }

// Location implements meet.Surface.
func (s *FakeSurface) Location(ctx context.Context) (string, error) {
	if s.LocationFn != nil {
		return s.LocationFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location, nil
}

// HTML implements meet.Surface.
func (s *FakeSurface) HTML(ctx context.Context) (string, error) {
	if s.HTMLFn != nil {
		return s.HTMLFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, nil
}

// Eval implements meet.Surface. Without an EvalFn every expression evaluates
// to null, which resolves to the zero value of out.
func (s *FakeSurface) Eval(ctx context.Context, expr string, out any) error {
	s.mu.Lock()
	s.evals = append(s.evals, expr)
	s.mu.Unlock()
	if s.EvalFn != nil {
		return s.EvalFn(ctx, expr, out)
	}
	return nil
}

// Navigate implements meet.Surface. Without a NavigateFn it records the URL
// and makes it the new location.
func (s *FakeSurface) Navigate(ctx context.Context, rawurl string) error {
	s.mu.Lock()
	s.navigations = append(s.navigations, rawurl)
	s.mu.Unlock()
	if s.NavigateFn != nil {
		return s.NavigateFn(ctx, rawurl)
	}
	s.SetLocation(rawurl)
	return nil
}

// SetLocation changes the location served by the default LocationFn.
func (s *FakeSurface) SetLocation(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = location
}

// SetHTML changes the document served by the default HTMLFn.
func (s *FakeSurface) SetHTML(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
}

// Navigations returns every URL passed to Navigate, in order.
func (s *FakeSurface) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Evals returns every expression passed to Eval, in order.
func (s *FakeSurface) Evals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.evals...)
}

// Resolve writes a JSON-roundtripped value into an Eval output pointer, the
// way a DevTools evaluation resolves its result. A nil out discards value.
func Resolve(out, value any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
