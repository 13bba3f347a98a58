package parsers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/google/uuid"
)

// linkTokenRe splits an RFC 8288 Link header into its comma-separated
// tokens, tolerating commas inside quoted parameter values.
var linkTokenRe = regexp.MustCompile(`<([^>]*)>\s*((?:;\s*[a-zA-Z]+\s*=\s*(?:"[^"]*"|[^;,]*))*)`)
var linkParamRe = regexp.MustCompile(`([a-zA-Z]+)\s*=\s*(?:"([^"]*)"|([^;,]*))`)

// prevAliases normalizes the rarely-used "previous" relation to "prev".
var prevAliases = map[string]string{"previous": "prev"}

// LinkParser discovers pagination and resource relations from the RFC 8288
// Link response header, HTML <link rel> tags, and hypermedia body
// envelopes (HAL, JSON:API, Siren, Collection+JSON, Hydra), per spec.md
// §4.4's format-fingerprinting rule.
type LinkParser struct {
	Client *http.Client
}

func NewLinkParser(client *http.Client) *LinkParser {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &LinkParser{Client: client}
}

func (p *LinkParser) Source() models.DiscoverySource { return models.SourceLinks }

func (p *LinkParser) Probe(ctx context.Context, domain string) (models.DiscoveryResult, error) {
	url := "https://" + domain + "/"
	result := models.DiscoveryResult{Confidence: models.SourcePriors[models.SourceLinks], ProbedLocations: []string{url}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return result, nil
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return result, nil
	}
	defer resp.Body.Close()

	var relations []models.LinkRelation
	relations = append(relations, parseLinkHeader(resp.Header.Get("Link"))...)

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "html") {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err == nil {
			relations = append(relations, parseHTMLLinkTags(doc)...)
		}
	} else if strings.Contains(contentType, "json") {
		var body any
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			relations = append(relations, detectHypermediaRelations(body)...)
		}
	}

	if len(relations) == 0 {
		return result, nil
	}

	result.Found = true
	spec := &models.ParsedSpec{Title: "link-relations", BaseURL: url}
	patterns := make([]models.APIPattern, 0, len(relations))
	now := time.Now()
	for _, rel := range relations {
		spec.Endpoints = append(spec.Endpoints, models.EndpointSpec{Method: "GET", Path: rel.Href})
		patterns = append(patterns, models.APIPattern{
			ID:               uuid.New().String(),
			TemplateType:     models.TemplateRestResource,
			URLPatterns:      []string{"^" + quoteURL(rel.Href) + "$"},
			EndpointTemplate: rel.Href,
			Method:           "GET",
			ResponseFormat:   models.FormatJSON,
			Metrics: models.PatternMetrics{
				Confidence:    models.SourcePriors[models.SourceLinks],
				SourceDomains: []string{domain},
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	result.Spec = spec
	result.Patterns = patterns
	return result, nil
}

// parseLinkHeader tokenizes a Link header value into LinkRelations,
// normalizing the "previous" alias to "prev".
func parseLinkHeader(header string) []models.LinkRelation {
	if header == "" {
		return nil
	}
	var out []models.LinkRelation
	for _, m := range linkTokenRe.FindAllStringSubmatch(header, -1) {
		href, paramsRaw := m[1], m[2]
		rel, typ := "", ""
		for _, pm := range linkParamRe.FindAllStringSubmatch(paramsRaw, -1) {
			key := strings.ToLower(pm[1])
			val := pm[2]
			if val == "" {
				val = pm[3]
			}
			switch key {
			case "rel":
				rel = strings.ToLower(val)
			case "type":
				typ = val
			}
		}
		if norm, ok := prevAliases[rel]; ok {
			rel = norm
		}
		out = append(out, models.LinkRelation{Href: href, Rel: rel, Type: typ})
	}
	return out
}

func parseHTMLLinkTags(doc *goquery.Document) []models.LinkRelation {
	var out []models.LinkRelation
	doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		rel, _ := s.Attr("rel")
		typ, _ := s.Attr("type")
		if href == "" {
			return
		}
		rel = strings.ToLower(rel)
		if norm, ok := prevAliases[rel]; ok {
			rel = norm
		}
		out = append(out, models.LinkRelation{Href: href, Rel: rel, Type: typ})
	})
	return out
}

// detectHypermediaRelations fingerprints a decoded JSON body to figure out
// which hypermedia envelope it's using, then extracts every relation that
// envelope carries (pagination rels such as next/prev/first/last as well as
// others such as self), normalizing "previous" to "prev".
func detectHypermediaRelations(body any) []models.LinkRelation {
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}

	if links, ok := m["_links"].(map[string]any); ok { // HAL
		return relationsFromMap(links, func(v any) string {
			if obj, ok := v.(map[string]any); ok {
				if href, ok := obj["href"].(string); ok {
					return href
				}
			}
			return ""
		})
	}
	if _, hasData := m["data"]; hasData {
		if _, hasType := m["links"]; hasType { // JSON:API top-level "links"
			if links, ok := m["links"].(map[string]any); ok {
				return relationsFromMap(links, func(v any) string { s, _ := v.(string); return s })
			}
		}
	}
	if linksArr, ok := m["links"].([]any); ok { // Siren
		var out []models.LinkRelation
		for _, l := range linksArr {
			obj, ok := l.(map[string]any)
			if !ok {
				continue
			}
			href, _ := obj["href"].(string)
			rels, _ := obj["rel"].([]any)
			for _, r := range rels {
				rel, _ := r.(string)
				out = append(out, models.LinkRelation{Href: href, Rel: rel})
			}
		}
		return out
	}
	if coll, ok := m["collection"].(map[string]any); ok { // Collection+JSON
		if href, ok := coll["href"].(string); ok {
			return []models.LinkRelation{{Href: href, Rel: "self"}}
		}
	}
	if ctx, ok := m["@context"]; ok { // Hydra
		if s, ok := ctx.(string); ok && strings.Contains(strings.ToLower(s), "hydra") {
			if view, ok := m["hydra:view"].(map[string]any); ok {
				return relationsFromMap(view, func(v any) string { s, _ := v.(string); return s })
			}
		}
	}
	return nil
}

func relationsFromMap(m map[string]any, extract func(any) string) []models.LinkRelation {
	var out []models.LinkRelation
	for rel, v := range m {
		if href := extract(v); href != "" {
			norm := rel
			if n, ok := prevAliases[rel]; ok {
				norm = n
			}
			out = append(out, models.LinkRelation{Href: href, Rel: norm})
		}
	}
	return out
}
