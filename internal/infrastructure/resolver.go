package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
	"go.uber.org/zap"
)

const (
	// the share page hides the media path inside the preview image URL:
	// https://<cdn>/<something>.gif/<host>/<path>.mp4?source=...
	assetMarker = ".gif/"
	assetSuffix = "?source"
)

// PageResolver implements domain.Resolver for CloudApp/Zight share pages
type PageResolver struct {
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPageResolver creates a new share page resolver
func NewPageResolver(config *domain.DownloadConfig, logger *zap.Logger) *PageResolver {
	return &PageResolver{
		userAgent: config.UserAgent,
		timeout:   config.HTTPTimeout,
		logger:    logger,
	}
}

// newCollector builds a synchronous collector bound to ctx. A collector is
// created per call so visited-URL tracking never blocks a second resolve of
// the same page.
func (r *PageResolver) newCollector(ctx context.Context) *colly.Collector {
	options := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	}
	if r.userAgent != "" {
		options = append(options, colly.UserAgent(r.userAgent))
	}

	c := colly.NewCollector(options...)
	// colly defaults to a 10s client timeout; zero here means none
	c.SetRequestTimeout(r.timeout)
	return c
}

// Resolve fetches the share page and extracts the direct media URL
func (r *PageResolver) Resolve(ctx context.Context, pageURL string, wantTitle bool) (*domain.ResolvedMedia, error) {
	c := r.newCollector(ctx)

	var (
		status int
		media  *domain.ResolvedMedia
	)

	c.OnResponse(func(resp *colly.Response) {
		status = resp.StatusCode
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		if !isSuccess(status) {
			return
		}
		if m, err := ExtractMedia(e.DOM, wantTitle); err == nil {
			media = m
		}
	})

	r.logger.Debug("Resolving share page", zap.String("url", pageURL))

	if err := c.Visit(pageURL); err != nil {
		return nil, domain.NewError(domain.KindFetch, "resolve", pageURL, err)
	}

	if !isSuccess(status) {
		return nil, domain.NewError(domain.KindFetch, "resolve", pageURL,
			fmt.Errorf("unexpected status %d %s", status, http.StatusText(status)))
	}

	if media == nil {
		return nil, domain.NewError(domain.KindNotFound, "resolve", pageURL, domain.ErrVideoNotFound)
	}

	r.logger.Debug("Resolved share page",
		zap.String("url", pageURL),
		zap.String("media_url", media.MediaURL),
		zap.String("title", media.Title))

	return media, nil
}

// ParseMedia extracts the media location from a share page document
func ParseMedia(page io.Reader, wantTitle bool) (*domain.ResolvedMedia, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, domain.NewError(domain.KindFetch, "parse", "", err)
	}
	return ExtractMedia(doc.Selection, wantTitle)
}

// ExtractMedia reads the twitter:image meta value below sel and rebuilds the
// media URL from it. The og:title content is returned when wantTitle is set.
func ExtractMedia(sel *goquery.Selection, wantTitle bool) (*domain.ResolvedMedia, error) {
	value, ok := sel.Find(`meta[name="twitter:image"]`).First().Attr("value")
	if !ok {
		return nil, notFound()
	}

	assetPath, ok := assetPathFrom(value)
	if !ok {
		return nil, notFound()
	}

	media := &domain.ResolvedMedia{MediaURL: "https://" + assetPath}

	if wantTitle {
		if title, ok := sel.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			media.Title = title
		}
	}

	return media, nil
}

// assetPathFrom returns the host/path part that follows the .gif/ marker,
// cut before ?source.
func assetPathFrom(imageValue string) (string, bool) {
	parts := strings.Split(imageValue, assetMarker)
	if len(parts) < 2 {
		return "", false
	}
	assetPath, _, _ := strings.Cut(parts[1], assetSuffix)
	if assetPath == "" {
		return "", false
	}
	return assetPath, true
}

func notFound() error {
	return domain.NewError(domain.KindNotFound, "extract", "", domain.ErrVideoNotFound)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
