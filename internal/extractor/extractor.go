// Package extractor fetches a web page and pulls out the title,
// description and preview image a bookmark is saved with.
package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

const (
	maxBodySize    = 10 << 20
	defaultTimeout = 10 * time.Second
)

var (
	titleSelectors = []selector{
		{`meta[property="og:title"]`, "content"},
	}
	descSelectors = []selector{
		{`meta[property="og:description"]`, "content"},
		{`meta[name="description"]`, "content"},
	}
	imageSelectors = []selector{
		{`meta[property="og:image"]`, "content"},
		{`link[rel~="icon"]`, "href"},
	}
)

type selector struct {
	query string
	attr  string
}

// Options configures an Extractor.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// Extractor fetches pages and extracts their metadata. Concurrent calls for
// the same URL share a single outbound request.
type Extractor struct {
	client    *http.Client
	userAgent string
	log       logger.Logger
	group     singleflight.Group
}

// New creates an Extractor.
func New(opts Options, log logger.Logger) *Extractor {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Extractor{
		client:    client,
		userAgent: opts.UserAgent,
		log:       log,
	}
}

// Extract fetches rawURL once and returns its metadata. Missing values fall
// back to placeholder title/description and a nil image. A non-2xx answer
// or a transport failure is returned as *domain.FetchError.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (domain.Metadata, error) {
	if strings.TrimSpace(rawURL) == "" {
		return domain.Metadata{}, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}

	// The shared fetch outlives any single caller; the client timeout bounds it.
	ch := e.group.DoChan(rawURL, func() (any, error) {
		return e.extract(context.WithoutCancel(ctx), rawURL)
	})

	select {
	case <-ctx.Done():
		return domain.Metadata{}, &domain.FetchError{URL: rawURL, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return domain.Metadata{}, res.Err
		}
		return res.Val.(domain.Metadata), nil
	}
}

func (e *Extractor) extract(ctx context.Context, rawURL string) (domain.Metadata, error) {
	start := time.Now()

	doc, err := e.fetch(ctx, rawURL)
	if err != nil {
		metrics.RecordExtraction(domain.KindOf(err).String(), time.Since(start).Seconds())
		e.log.Info("page fetch failed",
			logger.String("url", rawURL),
			logger.Error(err))
		return domain.Metadata{}, err
	}

	meta := parse(doc, rawURL)
	metrics.RecordExtraction("ok", time.Since(start).Seconds())
	e.log.Debug("page metadata extracted",
		logger.String("url", rawURL),
		logger.String("title", meta.Title),
		logger.Bool("has_image", meta.Image != nil),
		logger.Duration("elapsed", time.Since(start)))

	return meta, nil
}

// fetch performs the GET and parses the body leniently.
func (e *Extractor) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}
	e.setHeaders(req)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}
	defer utils.Close(res.Body)

	if res.StatusCode < http.StatusOK || res.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, res.Body, 4<<10)
		return nil, &domain.FetchError{URL: rawURL, StatusCode: res.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return doc, nil
}

func (e *Extractor) setHeaders(req *http.Request) {
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
}

// parse applies the fallback chains to doc.
func parse(doc *goquery.Document, pageURL string) domain.Metadata {
	title := first(doc, titleSelectors)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	meta := domain.Metadata{
		URL:         pageURL,
		Title:       domain.OrDefault(title, domain.DefaultTitle),
		Description: domain.OrDefault(first(doc, descSelectors), domain.DefaultDescription),
	}

	if img := first(doc, imageSelectors); img != "" {
		meta.Image = resolveImage(img, pageURL)
	}
	return meta
}

// first returns the first non-blank attribute value matched by sels,
// verbatim.
func first(doc *goquery.Document, sels []selector) string {
	for _, sel := range sels {
		v := doc.Find(sel.query).First().AttrOr(sel.attr, "")
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// resolveImage makes a relative image reference absolute against the
// origin (scheme and host) of pageURL. It returns nil when the reference
// cannot be resolved.
func resolveImage(img, pageURL string) *string {
	ref, err := url.Parse(strings.TrimSpace(img))
	if err != nil {
		return nil
	}
	if ref.IsAbs() {
		return &img
	}

	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil
	}

	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}
	resolved := origin.ResolveReference(ref).String()
	return &resolved
}
