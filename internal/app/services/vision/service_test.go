package vision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nutrilens/companion/internal/app/domain/profile"
)

type fakeAssessor struct {
	gotPrompt string
	gotImage  string
	summary   string
	err       error
}

func (f *fakeAssessor) Assess(_ context.Context, prompt, imageBase64 string) (string, error) {
	f.gotPrompt = prompt
	f.gotImage = imageBase64
	return f.summary, f.err
}

func TestPromptIncludesOnlySetFields(t *testing.T) {
	p := profile.Profile{
		Name:          "Alice",
		Email:         "a@x.com",
		Age:           "45",
		HbA1c:         "6.1",
		GlycemicIndex: "low",
	}

	got := Prompt(p)
	want := "User Info: Name: Alice, Email: a@x.com, Age: 45, HbA1c: 6.1, Glycemic Index: low"
	if got != want {
		t.Fatalf("prompt = %q, want %q", got, want)
	}
}

func TestPromptMinimalProfile(t *testing.T) {
	got := Prompt(profile.Profile{Name: "Bob", Email: "b@x.com"})
	if got != "User Info: Name: Bob, Email: b@x.com" {
		t.Fatalf("prompt = %q", got)
	}
}

func TestAssessImagePrefixesUserInfo(t *testing.T) {
	assessor := &fakeAssessor{summary: "Fine in moderation."}
	svc := New(assessor, nil)

	p := profile.Profile{Name: "Alice", Email: "a@x.com", Sugar: "130"}
	got, err := svc.AssessImage(context.Background(), p, "aGVsbG8=")
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if got != "Fine in moderation." {
		t.Errorf("summary = %q", got)
	}

	if !strings.HasPrefix(assessor.gotPrompt, "User Info: Name: Alice, Email: a@x.com, Sugar: 130\n") {
		t.Errorf("prompt = %q", assessor.gotPrompt)
	}
	if !strings.Contains(assessor.gotPrompt, "Is this suitable for the consumer?") {
		t.Errorf("prompt missing the suitability question: %q", assessor.gotPrompt)
	}
	if assessor.gotImage != "aGVsbG8=" {
		t.Errorf("image = %q", assessor.gotImage)
	}
}

func TestAssessImageRequiresImage(t *testing.T) {
	svc := New(&fakeAssessor{}, nil)

	_, err := svc.AssessImage(context.Background(), profile.Profile{Name: "A", Email: "a@x.com"}, "  ")
	if !errors.Is(err, profile.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestAssessImagePassesModelErrorThrough(t *testing.T) {
	wantErr := errors.New(`vision api error (status 402): {"error":"Insufficient credits"}`)
	svc := New(&fakeAssessor{err: wantErr}, nil)

	_, err := svc.AssessImage(context.Background(), profile.Profile{Name: "A", Email: "a@x.com"}, "img")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the model error unchanged", err)
	}
}
