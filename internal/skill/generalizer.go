package skill

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fetchweave/fetchsvc/internal/models"
)

const (
	mergeSimilarityThreshold   = 0.85
	defaultMatchSimilarity     = 0.65
	minWorkflowSuccessCount    = 3
	minWorkflowSuccessRate     = 0.7
	similarityScoreWeight      = 0.6
	preconditionScoreWeight    = 0.4
)

// Generalizer abstracts high-success Workflows into Skills, then into
// cross-domain SkillTemplates, and matches a PageContext against the
// stored templates at request time (spec.md §4.7).
type Generalizer struct {
	store    *Store
	embedder Embedder
}

func NewGeneralizer(store *Store, embedder Embedder) *Generalizer {
	return &Generalizer{store: store, embedder: embedder}
}

// EligibleForAbstraction reports whether wf has earned enough proven use to
// abstract: successCount >= 3 and successRate >= 0.7, derived from the
// Workflow's own usage counters rather than a separate tally.
func EligibleForAbstraction(wf models.Workflow) bool {
	successCount := int(math.Round(float64(wf.UsageCount) * wf.SuccessRate))
	return successCount >= minWorkflowSuccessCount && wf.SuccessRate >= minWorkflowSuccessRate
}

// Abstract turns an eligible Workflow into a Skill and, if an embedder is
// configured, immediately generalizes it into (or merges it with) a
// SkillTemplate. The Skill is always stored; template generalization is
// best-effort and its error is returned separately so a transient embedding
// failure never loses the underlying Skill.
func (g *Generalizer) Abstract(ctx context.Context, wf models.Workflow, pageType string) (models.Skill, error) {
	sk := models.Skill{
		SourceDomain: wf.Domain,
		Preconditions: models.SkillPreconditions{
			PageType: pageType,
		},
		ActionSequence: wf.Steps,
		Metrics: models.SkillMetrics{
			TimesUsed:    int(wf.UsageCount),
			SuccessCount: int(math.Round(float64(wf.UsageCount) * wf.SuccessRate)),
		},
	}
	sk.ID = g.store.UpsertSkill(sk)

	if g.embedder == nil {
		return sk, nil
	}
	if err := g.generalize(ctx, sk, pageType); err != nil {
		return sk, fmt.Errorf("skill: generalize %s: %w", sk.ID, err)
	}
	return sk, nil
}

func (g *Generalizer) generalize(ctx context.Context, sk models.Skill, pageType string) error {
	abstractSteps := make([]models.AbstractStep, 0, len(sk.ActionSequence))
	var selectorHints []string
	var contentHints []string
	for _, step := range sk.ActionSequence {
		descriptor := abstractSelector(step.Selector)
		abstractSteps = append(abstractSteps, models.AbstractStep{
			Action:             step.Action,
			SemanticDescriptor: descriptor,
			KnownSelectors:     nonEmpty(step.Selector),
			Importance:         step.Importance,
		})
		if descriptor != "" {
			selectorHints = append(selectorHints, descriptor)
		}
		if step.Action == models.ActionExtract {
			contentHints = append(contentHints, "content")
		}
	}

	description := buildDescription(pageType, abstractSteps, contentHints)
	embedding, err := g.embedder.Embed(ctx, description)
	if err != nil {
		return fmt.Errorf("embed description: %w", err)
	}

	template := models.SkillTemplate{
		SourceSkillIDs:         []string{sk.ID},
		Description:            description,
		AbstractSteps:          abstractSteps,
		Embedding:              embedding,
		SuccessfulDomains:      []string{sk.SourceDomain},
		CrossDomainSuccessRate: 1.0,
	}

	if existing, sim, ok := g.mostSimilarTemplate(embedding); ok && sim > mergeSimilarityThreshold {
		merged := MergeTemplates(existing, template)
		g.store.UpsertTemplate(merged)
		return nil
	}

	g.store.UpsertTemplate(template)
	return nil
}

func (g *Generalizer) mostSimilarTemplate(embedding []float32) (models.SkillTemplate, float64, bool) {
	var best models.SkillTemplate
	bestSim := -1.0
	found := false
	for _, t := range g.store.Templates() {
		sim := cosineSimilarity(embedding, t.Embedding)
		if sim > bestSim {
			bestSim = sim
			best = t
			found = true
		}
	}
	return best, bestSim, found
}

// buildDescription concatenates page type, action types, abstracted
// selectors, and content-type hints, per spec.md §4.7.
func buildDescription(pageType string, steps []models.AbstractStep, contentHints []string) string {
	var parts []string
	if pageType != "" {
		parts = append(parts, pageType)
	}
	for _, s := range steps {
		parts = append(parts, string(s.Action))
		if s.SemanticDescriptor != "" {
			parts = append(parts, s.SemanticDescriptor)
		}
	}
	parts = append(parts, dedupe(contentHints)...)
	return strings.Join(parts, " ")
}

// abstractSelector maps a concrete selector to a semantic descriptor by
// matching common naming conventions; unrecognized selectors degrade to
// empty so they contribute no noise to the description or match score.
func abstractSelector(selector string) string {
	s := strings.ToLower(selector)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "pagina") || strings.Contains(s, "next-page") || strings.Contains(s, "load-more"):
		return "pagination"
	case strings.Contains(s, "cookie") || strings.Contains(s, "consent") || strings.Contains(s, "gdpr"):
		return "cookie banner"
	case strings.Contains(s, "submit") || strings.Contains(s, "button") || strings.Contains(s, "btn"):
		return "button"
	case strings.Contains(s, "search"):
		return "search box"
	case strings.Contains(s, "login") || strings.Contains(s, "signin"):
		return "login form"
	case strings.Contains(s, "close") || strings.Contains(s, "dismiss") || strings.Contains(s, "modal"):
		return "dismiss control"
	default:
		return ""
	}
}

// MatchTemplates scores every stored template against ctx and returns the
// top-K candidates scoring at or above similarityThreshold (default 0.65),
// combined score = 0.6*similarity + 0.4*preconditionMatch.
func (g *Generalizer) MatchTemplates(ctx context.Context, page models.PageContext, topK int, similarityThreshold float64) ([]models.TemplateMatch, error) {
	if similarityThreshold <= 0 {
		similarityThreshold = defaultMatchSimilarity
	}
	var embedding []float32
	if g.embedder != nil {
		var err error
		embedding, err = g.embedder.Embed(ctx, page.PageType+" "+strings.Join(page.AvailableSelectors, " "))
		if err != nil {
			return nil, fmt.Errorf("skill: embed page context: %w", err)
		}
	}

	templates := g.store.Templates()
	matches := make([]models.TemplateMatch, 0, len(templates))
	for i := range templates {
		t := templates[i]
		sim := cosineSimilarity(embedding, t.Embedding)
		precond := preconditionOverlap(page, t)
		score := similarityScoreWeight*sim + preconditionScoreWeight*precond
		if sim < similarityThreshold {
			continue
		}
		matches = append(matches, models.TemplateMatch{
			Template:          &templates[i],
			TemplateID:        t.ID,
			Similarity:        sim,
			PreconditionMatch: precond,
			Score:             score,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// preconditionOverlap scores how many of a template's abstract selector
// descriptors the page's available selectors could plausibly satisfy.
func preconditionOverlap(page models.PageContext, t models.SkillTemplate) float64 {
	if len(t.AbstractSteps) == 0 {
		return 0
	}
	available := make(map[string]bool, len(page.AvailableSelectors))
	for _, s := range page.AvailableSelectors {
		available[abstractSelector(s)] = true
	}
	matchedCount := 0
	for _, step := range t.AbstractSteps {
		if step.SemanticDescriptor == "" || available[step.SemanticDescriptor] {
			matchedCount++
		}
	}
	return float64(matchedCount) / float64(len(t.AbstractSteps))
}

// MergeTemplates folds b into a when their similarity exceeds the merge
// threshold: union source skill ids, union successful/failed domains,
// weighted-average cross-domain success rate, union known concrete
// selectors per abstract step.
func MergeTemplates(a, b models.SkillTemplate) models.SkillTemplate {
	merged := a
	merged.SourceSkillIDs = dedupe(append(append([]string{}, a.SourceSkillIDs...), b.SourceSkillIDs...))
	merged.SuccessfulDomains = dedupe(append(append([]string{}, a.SuccessfulDomains...), b.SuccessfulDomains...))
	merged.FailedDomains = dedupe(append(append([]string{}, a.FailedDomains...), b.FailedDomains...))

	totalWeight := float64(len(a.SuccessfulDomains) + len(b.SuccessfulDomains))
	if totalWeight == 0 {
		totalWeight = 2
	}
	merged.CrossDomainSuccessRate = (a.CrossDomainSuccessRate*float64(max(len(a.SuccessfulDomains), 1)) +
		b.CrossDomainSuccessRate*float64(max(len(b.SuccessfulDomains), 1))) / totalWeight

	merged.AbstractSteps = mergeAbstractSteps(a.AbstractSteps, b.AbstractSteps)
	return merged
}

func mergeAbstractSteps(a, b []models.AbstractStep) []models.AbstractStep {
	byDescriptor := make(map[string]models.AbstractStep, len(a))
	order := make([]string, 0, len(a))
	for _, s := range a {
		byDescriptor[s.SemanticDescriptor] = s
		order = append(order, s.SemanticDescriptor)
	}
	for _, s := range b {
		if existing, ok := byDescriptor[s.SemanticDescriptor]; ok {
			existing.KnownSelectors = dedupe(append(append([]string{}, existing.KnownSelectors...), s.KnownSelectors...))
			byDescriptor[s.SemanticDescriptor] = existing
			continue
		}
		byDescriptor[s.SemanticDescriptor] = s
		order = append(order, s.SemanticDescriptor)
	}
	out := make([]models.AbstractStep, 0, len(order))
	for _, d := range order {
		out = append(out, byDescriptor[d])
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
