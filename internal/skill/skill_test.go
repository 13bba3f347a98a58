package skill

import (
	"context"
	"testing"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{ vectors map[string][]float32 }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func TestEligibleForAbstraction(t *testing.T) {
	assert.True(t, EligibleForAbstraction(models.Workflow{UsageCount: 5, SuccessRate: 0.8}))
	assert.False(t, EligibleForAbstraction(models.Workflow{UsageCount: 2, SuccessRate: 1.0}), "below successCount floor")
	assert.False(t, EligibleForAbstraction(models.Workflow{UsageCount: 10, SuccessRate: 0.5}), "below successRate floor")
}

func TestAbstract_StoresSkillAndTemplate(t *testing.T) {
	store := NewStore()
	embedder := &fakeEmbedder{}
	g := NewGeneralizer(store, embedder)

	wf := models.Workflow{
		Domain:      "example.com",
		UsageCount:  5,
		SuccessRate: 0.9,
		Steps: []models.WorkflowStep{
			{Action: models.ActionClick, Selector: "#next-page-link", Importance: models.ImportanceImportant},
			{Action: models.ActionExtract, Selector: ".article-body", Importance: models.ImportanceCritical},
		},
	}

	sk, err := g.Abstract(context.Background(), wf, "article-list")
	require.NoError(t, err)
	assert.NotEmpty(t, sk.ID)
	assert.Equal(t, 5, sk.Metrics.SuccessCount)

	templates := store.Templates()
	require.Len(t, templates, 1)
	assert.Contains(t, templates[0].Description, "article-list")
	assert.Contains(t, templates[0].Description, "pagination")
	assert.Equal(t, []string{"example.com"}, templates[0].SuccessfulDomains)
}

func TestAbstract_MergesSimilarTemplates(t *testing.T) {
	store := NewStore()
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	g := NewGeneralizer(store, embedder)

	wf1 := models.Workflow{Domain: "a.com", UsageCount: 5, SuccessRate: 0.9, Steps: []models.WorkflowStep{{Action: models.ActionClick, Selector: "#submit-btn"}}}
	wf2 := models.Workflow{Domain: "b.com", UsageCount: 5, SuccessRate: 1.0, Steps: []models.WorkflowStep{{Action: models.ActionClick, Selector: "#submit-btn"}}}

	_, err := g.Abstract(context.Background(), wf1, "checkout")
	require.NoError(t, err)
	_, err = g.Abstract(context.Background(), wf2, "checkout")
	require.NoError(t, err)

	templates := store.Templates()
	require.Len(t, templates, 1, "identical descriptions embed identically and should merge")
	assert.ElementsMatch(t, []string{"a.com", "b.com"}, templates[0].SuccessfulDomains)
	assert.Len(t, templates[0].SourceSkillIDs, 2)
}

func TestMatchTemplates_ScoresAndFilters(t *testing.T) {
	store := NewStore()
	store.UpsertTemplate(models.SkillTemplate{
		Description: "product-list pagination",
		Embedding:   []float32{1, 0, 0},
		AbstractSteps: []models.AbstractStep{
			{Action: models.ActionClick, SemanticDescriptor: "pagination"},
		},
	})
	store.UpsertTemplate(models.SkillTemplate{
		Description: "login-form",
		Embedding:   []float32{0, 1, 0},
		AbstractSteps: []models.AbstractStep{
			{Action: models.ActionFill, SemanticDescriptor: "login form"},
		},
	})

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"product-list next-page-link": {1, 0, 0},
	}}
	g := NewGeneralizer(store, embedder)

	matches, err := g.MatchTemplates(context.Background(), models.PageContext{
		PageType:           "product-list",
		AvailableSelectors: []string{"next-page-link"},
	}, 5, 0.65)
	require.NoError(t, err)
	require.Len(t, matches, 1, "only the high-cosine-similarity template should clear the threshold")
	assert.Equal(t, 1.0, matches[0].Similarity)
	assert.Equal(t, 1.0, matches[0].PreconditionMatch)
}

func TestMergeTemplates_UnionsDomainsAndSelectors(t *testing.T) {
	a := models.SkillTemplate{
		SourceSkillIDs:    []string{"s1"},
		SuccessfulDomains: []string{"a.com"},
		AbstractSteps: []models.AbstractStep{
			{SemanticDescriptor: "button", KnownSelectors: []string{"#submit"}},
		},
		CrossDomainSuccessRate: 0.9,
	}
	b := models.SkillTemplate{
		SourceSkillIDs:    []string{"s2"},
		SuccessfulDomains: []string{"b.com"},
		AbstractSteps: []models.AbstractStep{
			{SemanticDescriptor: "button", KnownSelectors: []string{".btn-primary"}},
		},
		CrossDomainSuccessRate: 1.0,
	}

	merged := MergeTemplates(a, b)
	assert.ElementsMatch(t, []string{"s1", "s2"}, merged.SourceSkillIDs)
	assert.ElementsMatch(t, []string{"a.com", "b.com"}, merged.SuccessfulDomains)
	require.Len(t, merged.AbstractSteps, 1)
	assert.ElementsMatch(t, []string{"#submit", ".btn-primary"}, merged.AbstractSteps[0].KnownSelectors)
}
