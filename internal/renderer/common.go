package renderer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fetchweave/fetchsvc/internal/domainutil"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/stealth"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// fetchURL issues a GET against rawURL, attaching session cookies and a
// per-domain Stealth Profile (spec.md §4.10) fingerprint's headers, and
// returns the body bytes plus the NetworkRequest log entry the API Analyzer
// later scores. Mirrors the teacher's prepareContentForLLM call site in
// shape: fetch first, reduce to text second.
func fetchURL(ctx context.Context, client *http.Client, rawURL string, session models.Session) ([]byte, *http.Response, models.NetworkRequest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, models.NetworkRequest{}, fmt.Errorf("build request: %w", err)
	}

	domain, domErr := domainutil.Domain(rawURL)
	if domErr != nil {
		domain = rawURL
	}
	fp := stealth.Generate(domain)
	for k, v := range fp.Headers() {
		req.Header.Set(k, v)
	}

	for _, c := range session.Cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	select {
	case <-time.After(stealth.JitteredDelay(20*time.Millisecond, 0.5)):
	case <-ctx.Done():
		return nil, nil, models.NetworkRequest{}, ctx.Err()
	}

	entry := models.NetworkRequest{Method: http.MethodGet, URL: rawURL, RequestHeaders: headersToMap(req.Header), Timestamp: time.Now()}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, entry, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, entry, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	entry.ResponseStatus = resp.StatusCode
	entry.ContentType = resp.Header.Get("Content-Type")
	entry.ResponseBody = body
	entry.ResponseHeaders = headersToMap(resp.Header)

	return body, resp, entry, nil
}

func headersToMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

// textFromHTML strips script/style and collapses whitespace, the same shape
// as the teacher's prepareContentForLLM.
func textFromHTML(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

func extractTitle(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractTables(doc *goquery.Document) []models.Table {
	var tables []models.Table
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		var table models.Table
		s.Find("thead th").Each(func(_ int, th *goquery.Selection) {
			table.Headers = append(table.Headers, strings.TrimSpace(th.Text()))
		})
		s.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
			var row []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				row = append(row, strings.TrimSpace(td.Text()))
			})
			if len(row) > 0 {
				table.Rows = append(table.Rows, row)
			}
		})
		if len(table.Headers) > 0 || len(table.Rows) > 0 {
			tables = append(tables, table)
		}
	})
	return tables
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
