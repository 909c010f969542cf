package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/heypicture/heypicture/internal/caption"
	"github.com/heypicture/heypicture/internal/feed"
	"github.com/heypicture/heypicture/internal/gallery"
	"github.com/heypicture/heypicture/internal/image"
	"github.com/heypicture/heypicture/internal/log"
	"github.com/heypicture/heypicture/internal/page"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	generator  image.Generator
	compositor *caption.Compositor
	gallery    *gallery.Gallery
	templator  *page.Templator
	feed       *feed.Generator
	count      int
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		generator:  do.MustInvoke[image.Generator](i),
		compositor: do.MustInvoke[*caption.Compositor](i),
		gallery:    do.MustInvoke[*gallery.Gallery](i),
		templator:  do.MustInvoke[*page.Templator](i),
		feed:       do.MustInvoke[*feed.Generator](i),
		count:      do.MustInvokeNamed[int](i, "sample_count"),
	}, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Get("/", h.Index)
	r.Post("/generate", h.Generate)
	r.Get("/images/{index}", h.Image)
	r.Get("/feed.xml", h.Feed)
	return r
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "")
}

// Generate validates the form, calls the generation service once, and burns
// the caption onto every returned image concurrently before installing the
// batch in the gallery. Validation problems never reach the network.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := log.FromContextOrDiscard(ctx).WithGroup("generate")

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	captionText := r.FormValue("caption")
	key := strings.TrimSpace(r.FormValue("key"))

	if prompt == "" {
		h.render(w, r, "Enter a prompt to generate pictures.")
		return
	}
	if key == "" {
		h.render(w, r, "Enter your API key to generate pictures.")
		return
	}

	token := h.gallery.Begin(prompt, captionText)
	log.Info("starting generation", "token", token, "count", h.count)

	raws, err := h.generator.Generate(ctx, image.Params{Prompt: prompt, Key: key, Count: h.count})
	if err != nil {
		var genErr *image.Error
		msg := lo.Ternary(errors.As(err, &genErr), err.Error(), "Generating pictures failed.")
		if !h.gallery.Fail(token, msg) {
			log.Info("discarding stale failure", "token", token)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	images := make([]gallery.Image, len(raws))
	group, gctx := errgroup.WithContext(ctx)
	for n, raw := range raws {
		n, raw := n, raw
		group.Go(func() error {
			images[n] = h.decorate(gctx, raw, captionText)
			return nil
		})
	}
	_ = group.Wait()

	if !h.gallery.Complete(token, images) {
		log.Info("discarding stale results", "token", token)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// decorate overlays the caption on one image. Overlay failures are absorbed:
// the undecorated original stands in and the user is never told.
func (h *Handler) decorate(ctx context.Context, raw []byte, captionText string) gallery.Image {
	data, err := h.compositor.Compose(ctx, raw, captionText)
	if err != nil {
		log.FromContextOrDiscard(ctx).Info("skipping caption overlay", "error", err)
		return gallery.Image{Data: raw, ContentType: http.DetectContentType(raw)}
	}
	return gallery.Image{
		Data:        data,
		ContentType: http.DetectContentType(data),
		Captioned:   strings.TrimSpace(captionText) != "",
	}
}

func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	img, ok := h.gallery.ImageAt(n)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("hey-picture-image-%d.png", n+1)))
	}
	w.Header().Set("Content-Type", img.ContentType)
	_, _ = w.Write(img.Data)
}

func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	rss, err := h.feed.Generate(r.Context())
	if err != nil {
		http.Error(w, "feed unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(rss)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, notice string) {
	html, err := h.templator.Template(r.Context(), page.Params{
		Gallery: h.gallery.Snapshot(),
		Notice:  notice,
	})
	if err != nil {
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}
