package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"dify-manga/internal/domain"
	"dify-manga/internal/util"

	"github.com/samber/lo"
)

const (
	maxQuestionRunes  = 1000
	maxLevelRunes     = 100
	maxTitleRunes     = 100
	maxSnapshotImages = 200
)

var (
	validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)
	validRunID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

func requiredText(field, value string, maxRunes int) domain.ValidationErrors {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError(field)}
	}
	if n := utf8.RuneCountInString(trimmed); n > maxRunes {
		return domain.ValidationErrors{domain.NewOutOfRangeError(field, n, 1, maxRunes)}
	}
	return nil
}

// ValidateGenerationRequest checks both fields before any remote call is made.
func (v *Validator) ValidateGenerationRequest(question, level string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	errors = append(errors, requiredText("user_question", question, maxQuestionRunes)...)
	errors = append(errors, requiredText("user_level", level, maxLevelRunes)...)
	return errors
}

// ValidateRunID accepts Dify run ids (UUIDs) and local placeholder ids.
func (v *Validator) ValidateRunID(runID string) domain.ValidationErrors {
	if strings.TrimSpace(runID) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("run_id")}
	}
	if !validRunID.MatchString(runID) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("run_id", runID)}
	}
	return nil
}

// ValidateLibraryEntryID checks the ULID format of a library entry id.
func (v *Validator) ValidateLibraryEntryID(id string) domain.ValidationErrors {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("id")}
	}
	if !util.IsULID(id) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("id", id)}
	}
	return nil
}

// ValidateLibraryUpdate requires at least one non-blank field; a field that is
// present but blank is rejected as well.
func (v *Validator) ValidateLibraryUpdate(update domain.LibraryUpdate) domain.ValidationErrors {
	var errors domain.ValidationErrors
	fields := []struct {
		name     string
		value    *string
		maxRunes int
	}{
		{"title", update.Title, maxTitleRunes},
		{"question", update.Question, maxQuestionRunes},
		{"level", update.Level, maxLevelRunes},
	}

	provided := 0
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if errs := requiredText(f.name, *f.value, f.maxRunes); len(errs) > 0 {
			errors = append(errors, errs...)
			continue
		}
		provided++
	}

	if provided == 0 && len(errors) == 0 {
		errors = append(errors, domain.ValidationError{
			Field:   "body",
			Code:    domain.CodeMissingField,
			Message: "at least one of title, question or level is required",
		})
	}
	return errors
}

// ValidateSessionID checks the client-chosen snapshot key.
func (v *Validator) ValidateSessionID(sessionID string) domain.ValidationErrors {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("session_id")}
	}
	if !validSessionID.MatchString(sessionID) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("session_id", sessionID)}
	}
	return nil
}

// ValidateSnapshot checks the client state fields that have a closed vocabulary.
func (v *Validator) ValidateSnapshot(snapshot domain.Snapshot) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if snapshot.Step != "" && !lo.Contains(domain.SnapshotSteps, snapshot.Step) {
		errors = append(errors, domain.NewInvalidFormatError("step", snapshot.Step))
	}
	if snapshot.Tab != "" && !lo.Contains(domain.SnapshotTabs, snapshot.Tab) {
		errors = append(errors, domain.NewInvalidFormatError("tab", snapshot.Tab))
	}
	if n := len(snapshot.ImageURLs); n > maxSnapshotImages {
		errors = append(errors, domain.NewOutOfRangeError("image_urls", n, 0, maxSnapshotImages))
	}
	if snapshot.RunID != "" {
		errors = append(errors, v.ValidateRunID(snapshot.RunID)...)
	}
	return errors
}

// ValidateProxyURL requires an absolute http(s) URL. The host allow-list is checked by the proxy.
func (v *Validator) ValidateProxyURL(rawURL string) domain.ValidationErrors {
	if strings.TrimSpace(rawURL) == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("url")}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domain.ValidationErrors{domain.NewInvalidFormatError("url", rawURL)}
	}
	return nil
}
