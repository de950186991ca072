// Package checklist implements the per-session meal checklist state manager.
package checklist

import (
	"sync"

	"github.com/nutrilens/companion/internal/app/domain/meal"
	"github.com/nutrilens/companion/pkg/logger"
)

// Transition describes what a toggle did to a food's completion flag.
type Transition int

const (
	BecameComplete Transition = iota
	BecameIncomplete
)

func (t Transition) String() string {
	if t == BecameComplete {
		return "became-complete"
	}
	return "became-incomplete"
}

// CompletedMessage is the acknowledgment shown when a food is marked done.
const CompletedMessage = "Great job! You have completed this food."

// Notifier produces the user-visible acknowledgment when a food is marked
// done. It fires exactly once per completing toggle and never on an undo;
// the returned text is surfaced to the user.
type Notifier interface {
	FoodCompleted(profileID string, food meal.Food) string
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(profileID string, food meal.Food) string

func (f NotifierFunc) FoodCompleted(profileID string, food meal.Food) string {
	return f(profileID, food)
}

// alertNotifier is the default acknowledgment source: it logs the completion
// and hands back the fixed congratulation.
type alertNotifier struct {
	log *logger.Logger
}

func (n alertNotifier) FoodCompleted(profileID string, food meal.Food) string {
	n.log.WithField("profile_id", profileID).WithField("food_id", food.ID).Info("food completed")
	return CompletedMessage
}

// FoodStatus is a catalog food joined with its completion flag.
type FoodStatus struct {
	meal.Food
	Completed bool `json:"completed"`
}

// SectionStatus is a catalog section joined with completion flags.
type SectionStatus struct {
	Name  string       `json:"name"`
	Icon  string       `json:"icon,omitempty"`
	Foods []FoodStatus `json:"foods"`
}

// Service tracks completion flags per profile, in memory only. State resets
// on restart; that is the intended lifecycle, not a gap. An absent key reads
// as incomplete, and keys are only ever toggled, never removed.
type Service struct {
	catalog  meal.Catalog
	notifier Notifier
	log      *logger.Logger

	mu     sync.Mutex
	states map[string]map[string]bool
}

// New creates the checklist manager over a fixed catalog. A nil notifier
// defaults to the built-in acknowledgment.
func New(catalog meal.Catalog, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checklist")
	}
	if notifier == nil {
		notifier = alertNotifier{log: log}
	}
	return &Service{
		catalog:  catalog,
		notifier: notifier,
		log:      log,
		states:   make(map[string]map[string]bool),
	}
}

// Catalog returns the fixed meal catalog.
func (s *Service) Catalog() meal.Catalog {
	return s.catalog
}

// Toggle flips the completion flag for a food, inserting it as previously
// incomplete when absent. Ids outside the catalog are accepted and tracked
// anyway. On a completing toggle the notifier's acknowledgment is returned;
// an undo returns none.
func (s *Service) Toggle(profileID, foodID string) (Transition, string) {
	s.mu.Lock()
	state, ok := s.states[profileID]
	if !ok {
		state = make(map[string]bool)
		s.states[profileID] = state
	}

	completed := !state[foodID]
	state[foodID] = completed
	s.mu.Unlock()

	if !completed {
		return BecameIncomplete, ""
	}

	food, ok := s.catalog.Food(foodID)
	if !ok {
		food = meal.Food{ID: foodID, Name: foodID}
	}
	return BecameComplete, s.notifier.FoodCompleted(profileID, food)
}

// Sections returns the catalog joined with the profile's completion flags,
// preserving catalog order. Foods never toggled read as incomplete.
func (s *Service) Sections(profileID string) []SectionStatus {
	s.mu.Lock()
	state := s.states[profileID]
	flags := make(map[string]bool, len(state))
	for id, done := range state {
		flags[id] = done
	}
	s.mu.Unlock()

	out := make([]SectionStatus, 0, len(s.catalog.Sections))
	for _, sec := range s.catalog.Sections {
		foods := make([]FoodStatus, 0, len(sec.Foods))
		for _, food := range sec.Foods {
			foods = append(foods, FoodStatus{Food: food, Completed: flags[food.ID]})
		}
		out = append(out, SectionStatus{Name: sec.Name, Icon: sec.Icon, Foods: foods})
	}
	return out
}

// Snapshot returns a copy of the profile's completion mapping. Foods never
// toggled are absent, which reads as incomplete.
func (s *Service) Snapshot(profileID string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(s.states[profileID]))
	for id, done := range s.states[profileID] {
		out[id] = done
	}
	return out
}

// Completed reports whether a single food is marked done.
func (s *Service) Completed(profileID, foodID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[profileID][foodID]
}

// Reset drops all checklist state for a profile. Called on logout.
func (s *Service) Reset(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, profileID)
}
