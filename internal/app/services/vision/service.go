// Package vision builds the assessment prompt from the active profile and
// delegates the image to the hosted model.
package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/nutrilens/companion/internal/app/domain/profile"
	"github.com/nutrilens/companion/pkg/logger"
)

// question is appended after the user info on every assessment.
const question = "Is this suitable for the consumer? Green tick icon if ok, red cross icon if not(at the top).Give summary in 50 words. "

// Assessor is the hosted model collaborator.
type Assessor interface {
	Assess(ctx context.Context, prompt, imageBase64 string) (string, error)
}

// Service prefixes each assessment with the consumer's health profile so the
// model can judge suitability for this user specifically.
type Service struct {
	assessor Assessor
	log      *logger.Logger
}

// New creates the assessment service.
func New(assessor Assessor, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("vision")
	}
	return &Service{assessor: assessor, log: log}
}

// Prompt renders the user-info line for a profile. Optional health fields
// are included only when set, in a fixed order.
func Prompt(p profile.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Info: Name: %s, Email: %s", p.Name, p.Email)

	for _, part := range []struct {
		label, value string
	}{
		{"Age", p.Age},
		{"BP", p.BloodPressure},
		{"Sugar", p.Sugar},
		{"HbA1c", p.HbA1c},
		{"Glycemic Index", p.GlycemicIndex},
		{"Cholesterol", p.Cholesterol},
	} {
		if part.value != "" {
			fmt.Fprintf(&b, ", %s: %s", part.label, part.value)
		}
	}
	return b.String()
}

// AssessImage asks the model whether the pictured food suits the given
// consumer. Model failures pass through verbatim.
func (s *Service) AssessImage(ctx context.Context, p profile.Profile, imageBase64 string) (string, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return "", profile.ErrValidation
	}

	prompt := Prompt(p) + "\n" + question
	summary, err := s.assessor.Assess(ctx, prompt, imageBase64)
	if err != nil {
		s.log.WithError(err).Warn("assessment failed")
		return "", err
	}
	return summary, nil
}
