// Package skill implements the Skill Store and Skill Generalizer from
// spec.md §4.7: abstracting a successful Workflow into a domain-bound
// Skill, then generalizing families of Skills into cross-domain
// SkillTemplates matched by embedding similarity plus precondition overlap.
//
// Grounded on patternstore.Store for the in-memory, mutex-guarded map shape
// (here simplified to one RWMutex since skills/templates are written far
// less often than API Pattern confidence counters are).
package skill

import (
	"sync"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/google/uuid"
)

// Store holds every Skill and SkillTemplate in memory, safe for concurrent
// use by the Generalizer and by request-time template matching.
type Store struct {
	mu        sync.RWMutex
	skills    map[string]models.Skill
	templates map[string]models.SkillTemplate
}

func NewStore() *Store {
	return &Store{
		skills:    make(map[string]models.Skill),
		templates: make(map[string]models.SkillTemplate),
	}
}

// UpsertSkill assigns a new id when s.ID is empty, otherwise overwrites the
// existing entry.
func (s *Store) UpsertSkill(sk models.Skill) string {
	if sk.ID == "" {
		sk.ID = uuid.NewString()
	}
	if sk.CreatedAt.IsZero() {
		sk.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.skills[sk.ID] = sk
	s.mu.Unlock()
	return sk.ID
}

func (s *Store) Skill(id string) (models.Skill, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.skills[id]
	return sk, ok
}

func (s *Store) Skills() []models.Skill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Skill, 0, len(s.skills))
	for _, sk := range s.skills {
		out = append(out, sk)
	}
	return out
}

func (s *Store) UpsertTemplate(t models.SkillTemplate) string {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.templates[t.ID] = t
	s.mu.Unlock()
	return t.ID
}

func (s *Store) Template(id string) (models.SkillTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	return t, ok
}

func (s *Store) Templates() []models.SkillTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SkillTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out
}

// DeleteTemplate removes a template by id. The Generalizer's merge path
// does not call it: a merge overwrites the existing template under its id.
func (s *Store) DeleteTemplate(id string) {
	s.mu.Lock()
	delete(s.templates, id)
	s.mu.Unlock()
}
