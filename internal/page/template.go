package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"sync"

	"github.com/heypicture/heypicture/internal/gallery"
	"github.com/heypicture/heypicture/internal/log"
	"github.com/samber/do"
)

//go:embed assets/index.html
var indexTmpl string

type Params struct {
	Gallery gallery.Snapshot
	Notice  string
}

type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func NewTemplator(i *do.Injector) (*Templator, error) {
	return &Templator{}, nil
}

func (t *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	t.once.Do(func() {
		t.tmpl = template.Must(template.New("index").Funcs(template.FuncMap{
			"requesting": func(p gallery.Phase) bool { return p == gallery.PhaseRequesting },
			"failed":     func(p gallery.Phase) bool { return p == gallery.PhaseFailed },
		}).Parse(indexTmpl))
	})

	log.FromContextOrDiscard(ctx).Debug("rendering page", "phase", params.Gallery.Phase)

	var data bytes.Buffer
	if err := t.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
