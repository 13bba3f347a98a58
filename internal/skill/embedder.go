package skill

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

// Embedder turns free text into a fixed-length vector for cosine-similarity
// matching (spec.md §4.7 "calls the Embedder to get a vector").
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// embedRequest/embedResponse are the genkit flow's structured input/output,
// the same GenerateData shape renderer.DefineRenderFlow uses rather than a
// dedicated embeddings API — the example pack has no embeddings call site
// to ground one on, so this reuses the one genkit pattern the repo already
// carries: a DefineFlow wrapping a single GenerateData call.
type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// GenkitEmbedder implements Embedder via a genkit flow.
type GenkitEmbedder struct {
	flow *genkitcore.Flow[*embedRequest, *embedResponse, struct{}]
}

// NewGenkitEmbedder registers the embedding flow against g using modelName.
func NewGenkitEmbedder(g *genkit.Genkit, modelName string) *GenkitEmbedder {
	flow := genkit.DefineFlow(
		g,
		"skillEmbedFlow",
		func(ctx context.Context, req *embedRequest) (*embedResponse, error) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled before embedding: %w", err)
			}
			prompt := buildEmbedPrompt(req.Text)
			result, _, err := genkit.GenerateData[embedResponse](
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithPrompt(prompt),
			)
			if err != nil {
				return nil, fmt.Errorf("skill embed LLM failed: %w", err)
			}
			return result, nil
		},
	)
	return &GenkitEmbedder{flow: flow}
}

func (e *GenkitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.flow.Run(ctx, &embedRequest{Text: text})
	if err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

func buildEmbedPrompt(text string) string {
	return fmt.Sprintf(`Produce a 32-dimensional embedding vector summarizing the semantic
content of the following skill description, as "embedding": an array of 32
floats each in [-1, 1].

DESCRIPTION:
%s`, text)
}
