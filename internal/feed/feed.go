package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/feeds"
	"github.com/heypicture/heypicture/internal/gallery"
	"github.com/heypicture/heypicture/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// Generator renders the current gallery as an RSS feed so the latest batch can
// be followed from a reader. Nothing is persisted; a new batch replaces the
// previous items entirely.
type Generator struct {
	gallery *gallery.Gallery
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	return &Generator{gallery: do.MustInvoke[*gallery.Gallery](i)}, nil
}

func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log.FromContextOrDiscard(ctx).Debug("generating rss feed")

	snap := g.gallery.Snapshot()
	feed := feeds.Feed{
		Title:       "Hey Picture",
		Description: "Latest generated pictures",
		Link:        &feeds.Link{Href: "/"},
		Updated:     snap.UpdatedAt,
	}
	feed.Items = lo.Map(snap.Images, func(img gallery.Image, n int) *feeds.Item {
		return &feeds.Item{
			Title:       fmt.Sprintf("%s (%d of %d)", snap.Prompt, n+1, len(snap.Images)),
			Link:        &feeds.Link{Href: fmt.Sprintf("/images/%d", n)},
			Description: lo.Ternary(img.Captioned, "captioned", "plain"),
			Updated:     snap.UpdatedAt,
		}
	})
	if feed.Updated.IsZero() {
		feed.Updated = time.Now()
	}

	rss, err := feed.ToRss()
	return []byte(rss), err
}
