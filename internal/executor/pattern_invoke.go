package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
)

// patternInvokeResult bundles what a winning (or exhausted) pattern-invoke
// attempt hands back to Fetch: the RenderOutput, the structured content
// the Verifier walks for fieldExists/fieldMatches checks, the extraction
// strategy label for the trace, and the id of whichever pattern fired.
type patternInvokeResult struct {
	out       models.RenderOutput
	content   any
	strategy  string
	patternID string
}

// tryPatterns iterates candidate patterns in the Planner's order,
// substituting each pattern's extractors into its endpoint template and
// invoking it. The first pattern whose response passes its own validation
// rules wins; total exhaustion returns an error so Fetch falls through to
// the next real tier (spec.md §4.2).
func (e *Executor) tryPatterns(ctx context.Context, patterns []models.APIPattern, canonicalURL string, session models.Session) (patternInvokeResult, error) {
	if len(patterns) == 0 {
		return patternInvokeResult{}, fmt.Errorf("pattern-invoke: no candidate patterns")
	}

	var lastErr error
	for _, pat := range patterns {
		out, content, err := e.invokePattern(ctx, pat, canonicalURL, session)
		if err != nil {
			lastErr = fmt.Errorf("pattern %s: %w", pat.ID, err)
			continue
		}
		return patternInvokeResult{
			out:       out,
			content:   content,
			strategy:  "pattern-invoke:" + string(pat.TemplateType),
			patternID: pat.ID,
		}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("pattern-invoke: no pattern matched")
	}
	return patternInvokeResult{}, lastErr
}

// invokePattern substitutes pat's extractors into its endpoint template,
// issues the HTTP call, decodes the response per its declared
// responseFormat, and checks pat.Validation before returning. A response
// failing validation is reported as an error so the caller tries the next
// candidate pattern.
func (e *Executor) invokePattern(ctx context.Context, pat models.APIPattern, canonicalURL string, session models.Session) (models.RenderOutput, any, error) {
	values, err := e.extractValues(pat, canonicalURL, session)
	if err != nil {
		return models.RenderOutput{}, nil, fmt.Errorf("extract values: %w", err)
	}
	endpoint := applyTemplate(pat.EndpointTemplate, values)

	method := pat.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return models.RenderOutput{}, nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range pat.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range session.Cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	started := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.RenderOutput{}, nil, fmt.Errorf("invoke %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.RenderOutput{}, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return models.RenderOutput{}, nil, fmt.Errorf("upstream rate limited (status 429)")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.RenderOutput{}, nil, fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}

	entry := models.NetworkRequest{
		Method: method, URL: endpoint, RequestHeaders: headerMapOf(req.Header),
		ResponseStatus: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"),
		ResponseHeaders: headerMapOf(resp.Header), ResponseBody: body, Timestamp: started,
	}

	if len(pat.Validation.AllowedContentType) > 0 && !contentTypeAllowed(entry.ContentType, pat.Validation.AllowedContentType) {
		return models.RenderOutput{}, nil, fmt.Errorf("response content-type %q not in allowed list", entry.ContentType)
	}

	var value any
	switch pat.ResponseFormat {
	case models.FormatJSON:
		if err := json.Unmarshal(body, &value); err != nil {
			return models.RenderOutput{}, nil, fmt.Errorf("decode json response: %w", err)
		}
	case models.FormatXML:
		value, err = decodeXML(body)
		if err != nil {
			return models.RenderOutput{}, nil, fmt.Errorf("decode xml response: %w", err)
		}
	default:
		value = string(body)
	}

	var title, bodyText string
	if pat.ContentMapping.Title != "" {
		title, _ = e.walker.StringAt(pat.ContentMapping.Title, value)
	}
	if pat.ContentMapping.Body != "" {
		bodyText, _ = e.walker.StringAt(pat.ContentMapping.Body, value)
	}
	text := bodyText
	if text == "" {
		text = title
	}

	for _, field := range pat.Validation.RequiredFields {
		v, err := e.walker.Walk(field, value)
		if err != nil || v == nil {
			return models.RenderOutput{}, nil, fmt.Errorf("required field %q missing from response", field)
		}
	}
	if pat.Validation.MinContentLength > 0 && len(text) < pat.Validation.MinContentLength {
		return models.RenderOutput{}, nil, fmt.Errorf("content shorter than required minimum length %d", pat.Validation.MinContentLength)
	}

	out := models.RenderOutput{
		FinalURL:   endpoint,
		Title:      title,
		Markdown:   text,
		Text:       text,
		NetworkLog: []models.NetworkRequest{entry},
	}
	if pat.ContentMapping.ListItems != "" {
		if items, err := e.walker.WalkAll(ctx, pat.ContentMapping.ListItems, value); err == nil && len(items) > 0 {
			out.Tables = []models.Table{itemsToTable(items)}
		}
	}
	return out, value, nil
}

// extractValues pulls each of pat's named Extractors out of the request's
// path, query string, or (approximated, since the Executor only carries an
// opaque session) cookie jar, and applies its regex/capture-group pair.
func (e *Executor) extractValues(pat models.APIPattern, canonicalURL string, session models.Session) (map[string]string, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	values := make(map[string]string, len(pat.Extractors))
	for _, ex := range pat.Extractors {
		var subject string
		switch ex.Source {
		case models.SourcePath:
			subject = u.Path
		case models.SourceQuery:
			subject = u.RawQuery
		case models.SourceHeader:
			subject = cookieSubject(session)
		default:
			subject = u.Path
		}

		re, err := regexp.Compile(ex.Pattern)
		if err != nil {
			return nil, fmt.Errorf("extractor %q: invalid pattern: %w", ex.Name, err)
		}
		m := re.FindStringSubmatch(subject)
		if ex.Group >= len(m) {
			return nil, fmt.Errorf("extractor %q: no match against %s", ex.Name, ex.Source)
		}
		values[ex.Name] = m[ex.Group]
	}
	return values, nil
}

func cookieSubject(session models.Session) string {
	var b strings.Builder
	for _, c := range session.Cookies {
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(c.Value)
		b.WriteString("\n")
	}
	return b.String()
}

// applyTemplate substitutes every "{name}" placeholder in tmpl with its
// extracted value.
func applyTemplate(tmpl string, values map[string]string) string {
	for k, v := range values {
		tmpl = strings.ReplaceAll(tmpl, "{"+k+"}", v)
	}
	return tmpl
}

func headerMapOf(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	ct := strings.ToLower(contentType)
	for _, a := range allowed {
		if strings.Contains(ct, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

// itemsToTable flattens a list of content-mapped items (typically
// map[string]any) into a header+rows Table for display.
func itemsToTable(items []any) models.Table {
	var headerSet []string
	seen := map[string]bool{}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		for k := range m {
			if !seen[k] {
				seen[k] = true
				headerSet = append(headerSet, k)
			}
		}
	}
	table := models.Table{Headers: headerSet}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			table.Rows = append(table.Rows, []string{fmt.Sprint(it)})
			continue
		}
		row := make([]string, len(headerSet))
		for i, h := range headerSet {
			if v, ok := m[h]; ok {
				row[i] = fmt.Sprint(v)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// decodeXML does a small, bounded recursive decode of an XML document into
// the map[string]any/[]any/string shape contentmap.Walker's gojq queries
// expect — repeated sibling tags collapse into a slice, leaf elements with
// no children become their trimmed text. Grounded directly on spec.md §9's
// guidance to avoid unbounded nested-capture parsing: this walks the
// decoder's token stream once, with recursion bounded by the document's own
// nesting depth, never backtracking.
func decodeXML(data []byte) (any, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeXMLElement(dec, start)
		}
	}
}

func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	children := map[string]any{}
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			if existing, ok := children[name]; ok {
				if list, ok := existing.([]any); ok {
					children[name] = append(list, child)
				} else {
					children[name] = []any{existing, child}
				}
			} else {
				children[name] = child
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) == 0 {
				return strings.TrimSpace(text.String()), nil
			}
			if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
				children["#text"] = trimmed
			}
			return children, nil
		}
	}
}
