package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/imagine/internal/models"
)

// imageContentType is applied to every upload regardless of the encoded format
const imageContentType = "image/png"

// Uploader is the object store the persister writes to. Client.AsUploader adapts S3.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// Persister copies rendered images into the output bucket
type Persister struct {
	store Uploader
	http  *resty.Client
}

// NewPersister creates a persister. httpClient is used to download hosted images;
// nil creates a private one.
func NewPersister(store Uploader, httpClient *resty.Client) *Persister {
	if httpClient == nil {
		httpClient = resty.New()
	}
	return &Persister{store: store, http: httpClient}
}

// Persist stores the image under key and returns its public location. Inline bytes are
// uploaded as-is; otherwise the source URL is downloaded first.
func (p *Persister) Persist(ctx context.Context, img *models.RenderedImage, key string) (*models.PersistedImage, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image to persist", models.ErrTransfer)
	}

	data := img.Data
	if len(data) == 0 {
		fetched, err := p.fetch(ctx, img.SourceURL)
		if err != nil {
			return nil, err
		}
		data = fetched
	}

	if err := p.store.Upload(ctx, key, data, imageContentType); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStorage, err)
	}

	return &models.PersistedImage{
		Key:       key,
		PublicURL: p.store.PublicURL(key),
		Size:      int64(len(data)),
	}, nil
}

// fetch downloads the image bytes. No content negotiation: the body is assumed to be an image.
func (p *Persister) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: rendered image has neither bytes nor source url", models.ErrTransfer)
	}

	resp, err := p.http.R().
		SetContext(ctx).
		Get(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %w", models.ErrTransfer, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: image download returned status %d", models.ErrTransfer, resp.StatusCode())
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: image download returned empty body", models.ErrTransfer)
	}

	log.Debug().
		Str("source_url", sourceURL).
		Int("size_bytes", len(body)).
		Msg("Image downloaded")

	return body, nil
}

type clientUploader struct{ *Client }

// AsUploader exposes the S3 client as an Uploader for the persister
func (c *Client) AsUploader() Uploader {
	return clientUploader{c}
}

// Upload sends the bytes with an explicit content length.
func (u clientUploader) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return u.Client.Upload(ctx, key, bytes.NewReader(data), contentType, int64(len(data)))
}
