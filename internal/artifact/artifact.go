package artifact

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// DefaultKey is the key the weather report is published under.
	DefaultKey = "weather-report"
	// DefaultDescription describes the weather report.
	DefaultDescription = "Weather Report"
	// TypeMarkdown is the only artifact type produced here.
	TypeMarkdown = "markdown"
)

var (
	// ErrNotFound is returned when no artifact exists for a key.
	ErrNotFound = errors.New("artifact not found")

	keyPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	validate   = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("artifactkey", func(fl validator.FieldLevel) bool {
		return keyPattern.MatchString(fl.Field().String())
	})
	return v
}

// Artifact is a published document. Once created it is never modified;
// publishing under the same Key adds a new version.
type Artifact struct {
	ID          string    `json:"id"`
	Key         string    `json:"key" validate:"required,artifactkey"`
	Type        string    `json:"type" validate:"required"`
	Description string    `json:"description"`
	Data        string    `json:"data"`
	FlowRunID   string    `json:"flowRunId,omitempty"`
	FlowRunName string    `json:"flowRunName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Publisher stores new artifact versions.
type Publisher interface {
	Create(ctx context.Context, a Artifact) (Artifact, error)
}

// Reader looks published artifacts up by key.
type Reader interface {
	Latest(ctx context.Context, key string) (Artifact, error)
	Versions(ctx context.Context, key string) ([]Artifact, error)
}

// Store is a Publisher that can also read back what it published.
type Store interface {
	Publisher
	Reader
}

// Option customises a Publish call.
type Option func(*Artifact)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(a *Artifact) { a.Key = key }
}

// WithDescription overrides DefaultDescription.
func WithDescription(desc string) Option {
	return func(a *Artifact) { a.Description = desc }
}

// WithFlowRun links the artifact to the run that produced it.
func WithFlowRun(id, name string) Option {
	return func(a *Artifact) {
		a.FlowRunID = id
		a.FlowRunName = name
	}
}

// Publish creates a new markdown artifact version through pub.
func Publish(ctx context.Context, pub Publisher, markdown string, opts ...Option) (Artifact, error) {
	a := Artifact{
		ID:          uuid.NewString(),
		Key:         DefaultKey,
		Type:        TypeMarkdown,
		Description: DefaultDescription,
		Data:        markdown,
		CreatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&a)
	}

	if err := ValidateKey(a.Key); err != nil {
		return Artifact{}, err
	}
	if err := validate.Struct(a); err != nil {
		return Artifact{}, fmt.Errorf("invalid artifact: %w", err)
	}

	created, err := pub.Create(ctx, a)
	if err != nil {
		return Artifact{}, fmt.Errorf("publish artifact %q: %w", a.Key, err)
	}
	return created, nil
}

// ValidateKey reports whether key is usable: lowercase letters, digits and dashes.
func ValidateKey(key string) error {
	if err := validate.Var(key, "required,artifactkey"); err != nil {
		return fmt.Errorf("invalid artifact key %q: must contain only lowercase letters, numbers, and dashes", key)
	}
	return nil
}
