package export

import (
	"context"
	"fmt"
	"time"

	"portfolio/cms/internal/content"
)

// Source loads the portfolio to export.
type Source interface {
	Portfolio(ctx context.Context) (content.Portfolio, error)
}

type pdfRenderer func(ctx context.Context, html, remoteURL string) ([]byte, error)

// Service renders the public portfolio.
type Service struct {
	source    Source
	assetBase string
	chromeURL string
	now       func() time.Time
	pdf       pdfRenderer
}

// NewService creates an exporter. assetBase is the public origin used to
// absolutize upload paths; chromeURL optionally names a remote Chrome
// DevTools endpoint.
func NewService(source Source, assetBase, chromeURL string) *Service {
	return &Service{
		source:    source,
		assetBase: assetBase,
		chromeURL: chromeURL,
		now:       time.Now,
		pdf:       renderPDF,
	}
}

func (s *Service) Export(ctx context.Context, format Format) (*Result, error) {
	portfolio, err := s.source.Portfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}

	data := NewTemplateData(portfolio, s.assetBase, s.now())
	html, err := RenderPortfolioHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	filename := sanitizeFilename(data.Name)

	switch format {
	case FormatHTML:
		return &Result{Data: []byte(html), Filename: filename + ".html", MimeType: "text/html; charset=utf-8"}, nil
	case FormatPDF:
		pdf, err := s.pdf(ctx, html, s.chromeURL)
		if err != nil {
			return nil, err
		}
		return &Result{Data: pdf, Filename: filename + ".pdf", MimeType: "application/pdf"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
