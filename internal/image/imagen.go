package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/heypicture/heypicture/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type ImagenGenerator struct {
	Client   *http.Client
	Endpoint string
	Model    string
}

func NewImagenGenerator(i *do.Injector) (Generator, error) {
	return &ImagenGenerator{
		Client:   do.MustInvoke[*http.Client](i),
		Endpoint: do.MustInvokeNamed[string](i, "endpoint"),
		Model:    do.MustInvokeNamed[string](i, "model"),
	}, nil
}

type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type instance struct {
	Prompt string `json:"prompt"`
}

type parameters struct {
	SampleCount int `json:"sampleCount"`
}

type predictResponse struct {
	Predictions []prediction  `json:"predictions"`
	Error       *serviceError `json:"error,omitempty"`
}

type prediction struct {
	MimeType           string `json:"mimeType,omitempty"`
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
}

type serviceError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

func (g *ImagenGenerator) Generate(ctx context.Context, params Params) ([][]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("imagen").With("model", g.Model, "count", params.Count)
	log.Info("generating images")

	body, err := json.Marshal(predictRequest{
		Instances:  []instance{{Prompt: params.Prompt}},
		Parameters: parameters{SampleCount: params.Count},
	})
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "encoding request failed", Err: err}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:predict?key=%s", g.Endpoint, g.Model, url.QueryEscape(params.Key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "building request failed", Err: err}
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "could not reach the image service", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "reading response failed", Err: err}
	}

	var parsed predictResponse
	if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode < 300 {
		return nil, &Error{Kind: KindEmptyResult, Message: "the image service returned an unreadable response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("the image service rejected the request (status %d)", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		log.Info("service rejected request", "status", resp.StatusCode)
		return nil, &Error{Kind: KindServiceRejected, Message: msg}
	}

	// Predictions without a decodable payload are skipped, not fatal. The
	// service sometimes pads the array with safety-filtered entries.
	images := lo.FilterMap(parsed.Predictions, func(p prediction, _ int) ([]byte, bool) {
		if p.BytesBase64Encoded == "" {
			return nil, false
		}
		raw, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return nil, false
		}
		return raw, true
	})

	if len(images) == 0 {
		return nil, &Error{Kind: KindEmptyResult, Message: "the image service returned no images"}
	}

	log.Info("received images", "received", len(parsed.Predictions), "usable", len(images))
	return images, nil
}
