// Package gallery holds the single session's display state: what the user
// last asked for and what, if anything, came back. A generation token guards
// against a slow request clobbering the results of a newer one.
package gallery

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseDisplaying
	PhaseFailed
)

type Image struct {
	Data        []byte
	ContentType string
	Captioned   bool
}

// Snapshot is an immutable view of the gallery for rendering.
type Snapshot struct {
	Phase     Phase
	Prompt    string
	Caption   string
	Error     string
	Images    []Image
	UpdatedAt time.Time
}

type Gallery struct {
	mu      sync.Mutex
	phase   Phase
	token   uuid.UUID
	prompt  string
	caption string
	errMsg  string
	images  []Image
	updated time.Time
}

func New(i *do.Injector) (*Gallery, error) {
	return &Gallery{phase: PhaseIdle}, nil
}

// Begin moves the gallery to Requesting and returns a fresh token. Any result
// carrying an older token is stale and will be discarded.
func (g *Gallery) Begin(prompt, caption string) uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = PhaseRequesting
	g.token = uuid.New()
	g.prompt = prompt
	g.caption = caption
	g.errMsg = ""
	g.images = nil
	g.updated = time.Now()
	return g.token
}

// Complete installs results for token. It reports false when the token has
// been superseded, in which case the results are dropped.
func (g *Gallery) Complete(token uuid.UUID, images []Image) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.token {
		return false
	}
	g.phase = PhaseDisplaying
	g.images = images
	g.errMsg = ""
	g.updated = time.Now()
	return true
}

// Fail records a generation failure for token, subject to the same staleness
// rule as Complete.
func (g *Gallery) Fail(token uuid.UUID, msg string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.token {
		return false
	}
	g.phase = PhaseFailed
	g.errMsg = msg
	g.images = nil
	g.updated = time.Now()
	return true
}

func (g *Gallery) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	images := make([]Image, len(g.images))
	copy(images, g.images)
	return Snapshot{
		Phase:     g.phase,
		Prompt:    g.prompt,
		Caption:   g.caption,
		Error:     g.errMsg,
		Images:    images,
		UpdatedAt: g.updated,
	}
}

// ImageAt returns the nth displayed image, zero-based.
func (g *Gallery) ImageAt(n int) (Image, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n < 0 || n >= len(g.images) {
		return Image{}, false
	}
	return g.images[n], true
}
