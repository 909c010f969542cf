package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/heypicture/heypicture/internal/caption"
	"github.com/heypicture/heypicture/internal/config"
	"github.com/heypicture/heypicture/internal/feed"
	"github.com/heypicture/heypicture/internal/gallery"
	"github.com/heypicture/heypicture/internal/handler"
	"github.com/heypicture/heypicture/internal/image"
	"github.com/heypicture/heypicture/internal/log"
	"github.com/heypicture/heypicture/internal/page"
	"github.com/samber/do"
)

func Setup(ctx context.Context, cfg config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})

	do.ProvideValue[config.Config](injector, cfg)
	do.Provide[*http.Client](injector, func(i *do.Injector) (*http.Client, error) {
		return &http.Client{Timeout: cfg.HTTPTimeout}, nil
	})

	do.ProvideNamedValue[string](injector, "endpoint", cfg.Endpoint)
	do.ProvideNamedValue[string](injector, "model", cfg.Model)
	do.ProvideNamedValue[int](injector, "sample_count", cfg.SampleCount)

	do.Provide[image.Generator](injector, image.NewImagenGenerator)
	do.Provide[*caption.Compositor](injector, caption.NewCompositor)
	do.Provide[*gallery.Gallery](injector, gallery.New)
	do.Provide[*page.Templator](injector, page.NewTemplator)
	do.Provide[*feed.Generator](injector, feed.NewGenerator)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
