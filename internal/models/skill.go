package models

import "time"

// SkillMetrics tracks how often a Skill has been invoked and how often that
// paid off.
type SkillMetrics struct {
	TimesUsed    int `json:"times_used"`
	SuccessCount int `json:"success_count"`
}

// SkillPreconditions describe the page shapes a Skill is known to apply to.
type SkillPreconditions struct {
	PageType            string   `json:"page_type,omitempty"`
	RequiredSelectorHints []string `json:"required_selector_hints,omitempty"`
	ContentTypeHints     []string `json:"content_type_hints,omitempty"`
	Language             string   `json:"language,omitempty"`
}

// Skill is a concrete, domain-bound abstraction of a successful Workflow.
type Skill struct {
	ID             string             `json:"id"`
	SourceDomain   string             `json:"source_domain"`
	Preconditions  SkillPreconditions `json:"preconditions"`
	ActionSequence []WorkflowStep     `json:"action_sequence"`
	Metrics        SkillMetrics       `json:"metrics"`
	CreatedAt      time.Time          `json:"created_at"`
}

// SkillTemplate generalizes a Skill (or a merged family of them) across
// semantically similar domains: concrete selectors are replaced with
// semantic element descriptors, each backed by a list of known concrete
// selectors actually observed to satisfy that descriptor.
type SkillTemplate struct {
	ID                   string              `json:"id"`
	SourceSkillIDs       []string            `json:"source_skill_ids"`
	Description          string              `json:"description"` // page type + action types + content hints, concatenated
	AbstractSteps        []AbstractStep      `json:"abstract_steps"`
	Embedding            []float32           `json:"embedding"`
	SuccessfulDomains    []string            `json:"successful_domains,omitempty"`
	FailedDomains        []string            `json:"failed_domains,omitempty"`
	CrossDomainSuccessRate float64           `json:"cross_domain_success_rate"`
	CreatedAt            time.Time           `json:"created_at"`
}

// AbstractStep replaces a WorkflowStep's concrete selector with a semantic
// descriptor ("button", "pagination", "cookie banner") plus the set of
// concrete selectors observed to satisfy it.
type AbstractStep struct {
	Action             StepAction `json:"action"`
	SemanticDescriptor string     `json:"semantic_descriptor"`
	KnownSelectors     []string   `json:"known_selectors"`
	Importance         StepImportance `json:"importance"`
}

// PageContext is what callers supply at match time to find an applicable
// SkillTemplate.
type PageContext struct {
	Domain             string   `json:"domain"`
	URL                string   `json:"url"`
	PageType           string   `json:"page_type,omitempty"`
	AvailableSelectors []string `json:"available_selectors,omitempty"`
}

// TemplateMatch is one scored candidate returned by the Skill Generalizer's
// template matching.
type TemplateMatch struct {
	Template          *SkillTemplate `json:"-"`
	TemplateID        string         `json:"template_id"`
	Similarity        float64        `json:"similarity"`
	PreconditionMatch float64        `json:"precondition_match"`
	Score             float64        `json:"score"` // 0.6*similarity + 0.4*preconditionMatch
}
