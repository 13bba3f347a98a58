package renderer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fetchweave/fetchsvc/internal/models"
)

// LightweightRenderer fetches a page with a plain HTTP client and extracts
// title/text/tables with goquery — no JavaScript execution. Grounded
// directly on the teacher's prepareContentForLLM (internal/driven/analyzer.go),
// generalized from "reduce a page to LLM-sized text" into "produce a full
// RenderOutput".
type LightweightRenderer struct {
	Client *http.Client
}

func NewLightweightRenderer(client *http.Client) *LightweightRenderer {
	if client == nil {
		client = http.DefaultClient
	}
	return &LightweightRenderer{Client: client}
}

func (l *LightweightRenderer) Tier() models.Tier { return models.TierLightweight }

func (l *LightweightRenderer) Render(ctx context.Context, url string, session models.Session) (models.RenderOutput, error) {
	body, resp, entry, err := fetchURL(ctx, l.Client, url, session)
	if err != nil {
		return models.RenderOutput{}, err
	}

	out := models.RenderOutput{FinalURL: url, NetworkLog: []models.NetworkRequest{entry}}
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
	}

	if !strings.Contains(entry.ContentType, "html") {
		out.Text = string(body)
		out.Markdown = out.Text
		return out, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return models.RenderOutput{}, fmt.Errorf("lightweight render: parse html: %w", err)
	}

	out.HTML = string(body)
	out.Title = extractTitle(doc)
	out.Text = textFromHTML(doc)
	out.Markdown = out.Text
	out.Tables = extractTables(doc)
	return out, nil
}
