package parsers

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
)

var commonBlueprintLocations = []string{"/apiary.apib", "/api.apib", "/docs/api.apib"}

// apibActionRe matches an API Blueprint action header whose method and path
// are bracketed, e.g. "### List Users [GET /users]". Bare headers such as
// "## GET /users" are not matched.
var apibActionRe = regexp.MustCompile(`^#{1,6}.*\[(GET|POST|PUT|PATCH|DELETE)\s+([^\]]+)\]`)

// BlueprintParser scans a probed API Blueprint (Markdown + FORMAT header)
// document line by line for action headers.
type BlueprintParser struct {
	Client *http.Client
}

func NewBlueprintParser(client *http.Client) *BlueprintParser {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &BlueprintParser{Client: client}
}

func (p *BlueprintParser) Source() models.DiscoverySource { return models.SourceBlueprint }

func (p *BlueprintParser) Probe(ctx context.Context, domain string) (models.DiscoveryResult, error) {
	result := models.DiscoveryResult{Confidence: models.SourcePriors[models.SourceBlueprint]}

	for _, loc := range commonBlueprintLocations {
		url := "https://" + domain + loc
		result.ProbedLocations = append(result.ProbedLocations, url)

		body, ok := fetch(ctx, p.Client, url)
		if !ok || !bytes.Contains(body[:min(len(body), 64)], []byte("FORMAT:")) {
			continue
		}

		spec := &models.ParsedSpec{Version: "api-blueprint", BaseURL: "https://" + domain}
		scanner := bufio.NewScanner(bytes.NewReader(body))
		for scanner.Scan() {
			if m := apibActionRe.FindStringSubmatch(scanner.Text()); m != nil {
				path := strings.TrimSpace(m[2])
				if idx := strings.IndexAny(path, " {"); idx != -1 {
					path = path[:idx]
				}
				spec.Endpoints = append(spec.Endpoints, models.EndpointSpec{Method: m[1], Path: path})
			}
		}
		if len(spec.Endpoints) == 0 {
			continue
		}

		result.Found = true
		result.Spec = spec
		result.Patterns = compilePatternsFromSource(domain, spec, models.SourceBlueprint)
		return result, nil
	}
	return result, nil
}
