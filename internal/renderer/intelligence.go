package renderer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

const maxContentForLLM = 4000

// IntelligenceRequest is the input to the intelligence-tier render flow.
type IntelligenceRequest struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// IntelligenceResponse is the LLM's structured reading of the page.
type IntelligenceResponse struct {
	Title    string        `json:"title"`
	Markdown string        `json:"markdown"`
	Tables   []models.Table `json:"tables,omitempty"`
}

// DefineRenderFlow registers the intelligence tier's genkit flow. Grounded
// on internal/llm/analyst_flow.go's DefineAnalystFlow: DefineFlow wrapping a
// single GenerateData call with a model name override.
func DefineRenderFlow(g *genkit.Genkit, modelName string) *genkitcore.Flow[*IntelligenceRequest, *IntelligenceResponse, struct{}] {
	return genkit.DefineFlow(
		g,
		"intelligenceRenderFlow",
		func(ctx context.Context, req *IntelligenceRequest) (*IntelligenceResponse, error) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled before intelligence render: %w", err)
			}

			prompt := buildRenderPrompt(req)

			result, _, err := genkit.GenerateData[IntelligenceResponse](
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithPrompt(prompt),
			)
			if err != nil {
				return nil, fmt.Errorf("intelligence render LLM failed: %w", err)
			}
			return result, nil
		},
	)
}

func buildRenderPrompt(req *IntelligenceRequest) string {
	return fmt.Sprintf(`You are reading a web page fetched from %s.

Produce:
- title: the page's title
- markdown: the page's main content rendered as clean markdown, dropping navigation/ads/boilerplate
- tables: any tabular data on the page, as headers + rows

PAGE CONTENT:
%s`, req.URL, req.Content)
}

// IntelligenceRenderer fetches a page over plain HTTP, then asks an LLM flow
// to produce a clean title/markdown/tables triple rather than rendering
// JavaScript. This is the "fast, no headless browser" tier from spec.md §2.
type IntelligenceRenderer struct {
	Client *http.Client
	Flow   *genkitcore.Flow[*IntelligenceRequest, *IntelligenceResponse, struct{}]
}

func NewIntelligenceRenderer(client *http.Client, flow *genkitcore.Flow[*IntelligenceRequest, *IntelligenceResponse, struct{}]) *IntelligenceRenderer {
	if client == nil {
		client = http.DefaultClient
	}
	return &IntelligenceRenderer{Client: client, Flow: flow}
}

func (ir *IntelligenceRenderer) Tier() models.Tier { return models.TierIntelligence }

func (ir *IntelligenceRenderer) Render(ctx context.Context, url string, session models.Session) (models.RenderOutput, error) {
	body, resp, entry, err := fetchURL(ctx, ir.Client, url, session)
	if err != nil {
		return models.RenderOutput{}, err
	}

	out := models.RenderOutput{FinalURL: url, HTML: string(body), NetworkLog: []models.NetworkRequest{entry}}
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
	}

	content := prepareContentForLLM(string(body), entry.ContentType)

	llmOut, err := ir.Flow.Run(ctx, &IntelligenceRequest{URL: url, Content: content})
	if err != nil {
		return models.RenderOutput{}, fmt.Errorf("intelligence render: %w", err)
	}

	out.Title = llmOut.Title
	out.Markdown = llmOut.Markdown
	out.Text = llmOut.Markdown
	out.Tables = llmOut.Tables
	return out, nil
}

// prepareContentForLLM is the teacher's internal/driven/analyzer.go
// prepareContentForLLM, unchanged in shape: strip HTML to plain text for
// HTML bodies, pass JSON/text through truncated, to keep prompts bounded.
func prepareContentForLLM(content, contentType string) string {
	if len(content) == 0 {
		return "empty"
	}

	if strings.Contains(contentType, "html") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
		if err == nil {
			return truncate("HTML text content: "+textFromHTML(doc), maxContentForLLM)
		}
	}

	if strings.Contains(contentType, "javascript") || strings.Contains(contentType, "json") {
		return truncate(content, maxContentForLLM)
	}

	return truncate(content, maxContentForLLM)
}
