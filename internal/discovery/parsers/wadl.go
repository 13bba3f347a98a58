package parsers

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
)

var commonWADLLocations = []string{"/application.wadl", "/api.wadl"}

var (
	openTagRe   = regexp.MustCompile(`(?i)^<resource\b([^>]*)>`)
	selfCloseRe = regexp.MustCompile(`(?i)^<resource\b([^>]*)/>`)
	closeTagRe  = regexp.MustCompile(`(?i)^</resource>`)
	methodTagRe = regexp.MustCompile(`(?i)^<method\b[^>]*\bname="([a-zA-Z]+)"`)
	pathAttrRe  = regexp.MustCompile(`(?i)\bpath="([^"]*)"`)
)

// WADLParser scans a probed WADL document with a small balanced-tag state
// machine rather than a single nested regex: tracking <resource>/
// </resource> depth (with self-closing-tag handling) avoids the
// catastrophic backtracking a naive "match everything between tags" regex
// would risk on deeply nested resource trees.
type WADLParser struct {
	Client *http.Client
}

func NewWADLParser(client *http.Client) *WADLParser {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &WADLParser{Client: client}
}

func (p *WADLParser) Source() models.DiscoverySource { return models.SourceWADL }

func (p *WADLParser) Probe(ctx context.Context, domain string) (models.DiscoveryResult, error) {
	result := models.DiscoveryResult{Confidence: models.SourcePriors[models.SourceWADL]}

	for _, loc := range commonWADLLocations {
		url := "https://" + domain + loc
		result.ProbedLocations = append(result.ProbedLocations, url)

		body, ok := fetch(ctx, p.Client, url)
		if !ok || !strings.Contains(string(body[:min64(len(body), 256)]), "<application") {
			continue
		}

		spec := &models.ParsedSpec{Version: "wadl", BaseURL: "https://" + domain}
		spec.Endpoints = scanWADL(string(body))
		if len(spec.Endpoints) == 0 {
			continue
		}

		result.Found = true
		result.Spec = spec
		result.Patterns = compilePatternsFromSource(domain, spec, models.SourceWADL)
		return result, nil
	}
	return result, nil
}

// scanWADL walks the document byte-by-byte, maintaining a stack of path
// segments from nested <resource path="..."> elements, and emits one
// EndpointSpec per <method name="GET"> element found at any depth.
func scanWADL(doc string) []models.EndpointSpec {
	var stack []string
	var endpoints []models.EndpointSpec

	i := 0
	for i < len(doc) {
		rest := doc[i:]

		if m := selfCloseRe.FindStringSubmatchIndex(rest); m != nil && m[0] == 0 {
			i += m[1] // self-closing <resource/> contributes no children, no push/pop
			continue
		}
		if m := openTagRe.FindStringSubmatchIndex(rest); m != nil && m[0] == 0 {
			attrs := rest[m[2]:m[3]]
			segment := ""
			if pm := pathAttrRe.FindStringSubmatch(attrs); pm != nil {
				segment = pm[1]
			}
			stack = append(stack, segment)
			i += m[1]
			continue
		}
		if m := closeTagRe.FindStringIndex(rest); m != nil && m[0] == 0 {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			i += m[1]
			continue
		}
		if m := methodTagRe.FindStringSubmatchIndex(rest); m != nil && m[0] == 0 {
			method := rest[m[2]:m[3]]
			endpoints = append(endpoints, models.EndpointSpec{
				Method: strings.ToUpper(method),
				Path:   joinWADLPath(stack),
			})
			i += m[1]
			continue
		}
		i++
	}
	return endpoints
}

func joinWADLPath(segments []string) string {
	var b strings.Builder
	for _, s := range segments {
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, "/") {
			b.WriteString("/")
		}
		b.WriteString(strings.Trim(s, "/"))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func min64(a, b int) int {
	if a < b {
		return a
	}
	return b
}
