package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/dengnaichen/jobworkflow/internal/interfaces"
)

const (
	linkedinSearchURL  = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedinPostingURL = "https://www.linkedin.com/jobs-guest/jobs/api/jobPosting/%s"
	searchPageSize     = 25
)

// SourceConfig tunes the default LinkedIn guest-API source.
type SourceConfig struct {
	UserAgent        string
	RequestTimeout   time.Duration
	RequestDelay     time.Duration // minimum spacing between requests
	EnableJavaScript bool          // render detail pages with chromedp when the guest API returns a shell
}

// LinkedInSource fetches postings from the LinkedIn guest search endpoint
// and hydrates descriptions from the per-posting guest API, converting the
// HTML body to markdown.
type LinkedInSource struct {
	config    SourceConfig
	client    *http.Client
	limiter   *rate.Limiter
	converter *md.Converter
	logger    arbor.ILogger
}

var _ interfaces.JobSource = (*LinkedInSource)(nil)

// NewLinkedInSource creates the default job source.
func NewLinkedInSource(config SourceConfig, logger arbor.ILogger) *LinkedInSource {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	delay := config.RequestDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	converter := md.NewConverter("", true, nil)

	return &LinkedInSource{
		config:    config,
		client:    &http.Client{Timeout: config.RequestTimeout},
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		converter: converter,
		logger:    logger,
	}
}

// Fetch retrieves up to opts.ResultsWanted postings for one search term.
func (s *LinkedInSource) Fetch(ctx context.Context, opts interfaces.FetchOptions) ([]interfaces.RawRecord, error) {
	var records []interfaces.RawRecord

	for start := 0; len(records) < opts.ResultsWanted; start += searchPageSize {
		page, err := s.fetchSearchPage(ctx, opts, start)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		records = append(records, page...)
	}

	if len(records) > opts.ResultsWanted {
		records = records[:opts.ResultsWanted]
	}

	for i := range records {
		if err := s.hydrateDescription(ctx, &records[i]); err != nil {
			// Descriptions are best-effort at the fetch layer; the
			// normalizer's require_description filter decides whether the
			// record survives.
			s.logger.Debug().Err(err).Str("job_url", records[i].JobURL).Msg("Failed to hydrate job description")
		}
	}
	return records, nil
}

func (s *LinkedInSource) fetchSearchPage(ctx context.Context, opts interfaces.FetchOptions, start int) ([]interfaces.RawRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("keywords", opts.Term)
	params.Set("location", opts.Location)
	params.Set("f_TPR", fmt.Sprintf("r%d", opts.HoursOld*3600))
	params.Set("start", fmt.Sprintf("%d", start))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkedinSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	var records []interfaces.RawRecord
	cards := doc.Find("div.base-card")
	if cards.Length() == 0 {
		cards = doc.Find("li")
	}
	cards.Each(func(_ int, sel *goquery.Selection) {
		link, ok := sel.Find("a.base-card__full-link").Attr("href")
		if !ok {
			return
		}
		rec := interfaces.RawRecord{
			Site:     "linkedin",
			JobURL:   strings.TrimSpace(link),
			Title:    strings.TrimSpace(sel.Find(".base-search-card__title").Text()),
			Company:  strings.TrimSpace(sel.Find(".base-search-card__subtitle").Text()),
			Location: strings.TrimSpace(sel.Find(".job-search-card__location").Text()),
		}
		if posted, ok := sel.Find("time").Attr("datetime"); ok {
			rec.DatePosted = strings.TrimSpace(posted)
		}
		records = append(records, rec)
	})
	return records, nil
}

// hydrateDescription fetches the posting detail and converts the
// description HTML to markdown.
func (s *LinkedInSource) hydrateDescription(ctx context.Context, rec *interfaces.RawRecord) error {
	jobID := linkedinJobIDRe.FindStringSubmatch(rec.JobURL)
	if jobID == nil {
		return fmt.Errorf("no posting id in url")
	}
	rec.ID = jobID[1]

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(linkedinPostingURL, jobID[1]), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("posting request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	html := extractDescriptionHTML(string(body))
	if html == "" && s.config.EnableJavaScript {
		rendered, rerr := s.renderWithBrowser(ctx, rec.JobURL)
		if rerr != nil {
			return rerr
		}
		html = extractDescriptionHTML(rendered)
	}
	if html == "" {
		return fmt.Errorf("no description markup in posting")
	}

	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		return fmt.Errorf("failed to convert description to markdown: %w", err)
	}
	rec.Description = strings.TrimSpace(markdown)
	return nil
}

func extractDescriptionHTML(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	sel := doc.Find(".show-more-less-html__markup").First()
	if sel.Length() == 0 {
		sel = doc.Find(".description__text").First()
	}
	if sel.Length() == 0 {
		return ""
	}
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return html
}

// renderWithBrowser loads a posting page in headless Chrome and returns
// the rendered HTML. Used only when the guest API serves a JS shell.
func (s *LinkedInSource) renderWithBrowser(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, s.config.RequestTimeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser render failed: %w", err)
	}
	return html, nil
}
