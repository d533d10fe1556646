package meet

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ARIA labels of the page controls automeet interacts with. The host page
// localizes these, so they are only valid for the English UI.
const (
	MicLabel          = "Turn off microphone"
	CameraLabel       = "Turn off camera"
	callControlsLabel = "Call controls"
)

// joinTexts are the accepted labels of a join control, compared
// case-insensitively after trimming.
var joinTexts = []string{"join anyway", "join", "ask to join", "join now"}

// PageInfo is a classification of one page snapshot. It is a value, not a
// live view: the host page mutates constantly and callers must re-observe
// before every interaction.
type PageInfo struct {
	Location string
	// Code is the meeting code from the location, "" when the page is not on
	// a specific meeting URL.
	Code string
	// Landing marks the generic start page.
	Landing bool
	// CallControls reports the in-call toolbar marker.
	CallControls bool
	// JoinControl reports a clickable join button, meaning the page sits in
	// a lobby or waiting room.
	JoinControl bool
	// MicControl and CameraControl report the pre-join device toggles.
	MicControl    bool
	CameraControl bool
}

// InCall is the canonical "already on an active call" predicate: a meeting
// code in the URL, the call-controls marker rendered, and not the landing
// page. It is applied uniformly wherever call state matters.
func (i PageInfo) InCall() bool {
	return i.Code != "" && i.CallControls && !i.Landing
}

// ClassifyPage parses one HTML snapshot taken at the given location.
func ClassifyPage(location, html string) (PageInfo, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageInfo{}, fmt.Errorf("could not parse page at %q: %w", location, err)
	}

	return PageInfo{
		Location:      location,
		Code:          CodeFromURL(location),
		Landing:       IsLandingURL(location),
		CallControls:  hasAriaLabel(doc, callControlsLabel),
		JoinControl:   hasJoinControl(doc),
		MicControl:    hasAriaLabel(doc, MicLabel),
		CameraControl: hasAriaLabel(doc, CameraLabel),
	}, nil
}

func hasAriaLabel(doc *goquery.Document, label string) bool {
	return doc.Find(fmt.Sprintf(`[aria-label=%q]`, label)).Length() > 0
}

func hasJoinControl(doc *goquery.Document) bool {
	found := false
	doc.Find(`button, [role="button"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if MatchesJoinText(sel.Text()) {
			found = true
			return false
		}
		return true
	})
	return found
}

// MatchesJoinText reports whether a control's text identifies it as a join
// button.
func MatchesJoinText(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, want := range joinTexts {
		if text == want {
			return true
		}
	}
	return false
}

// Surface is one automatable Meet page. The browser layer implements it on
// top of a DevTools session; tests substitute scripted fakes.
type Surface interface {
	// TargetID identifies the underlying browser target.
	TargetID() string
	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)
	// HTML returns a snapshot of the rendered document.
	HTML(ctx context.Context) (string, error)
	// Eval runs a JavaScript expression and unmarshals its result into out,
	// which may be nil when the result does not matter.
	Eval(ctx context.Context, expr string, out any) error
	// Navigate loads the given URL in the page.
	Navigate(ctx context.Context, rawurl string) error
}

// Observe takes a fresh snapshot of the surface and classifies it.
func Observe(ctx context.Context, s Surface) (PageInfo, error) {
	location, err := s.Location(ctx)
	if err != nil {
		return PageInfo{}, err
	}
	html, err := s.HTML(ctx)
	if err != nil {
		return PageInfo{}, err
	}
	return ClassifyPage(location, html)
}
