package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/i474232898/weather-flow/internal/artifact"
	"github.com/i474232898/weather-flow/internal/export"
	"github.com/i474232898/weather-flow/internal/flow"
	"github.com/i474232898/weather-flow/internal/secrets"
	"github.com/i474232898/weather-flow/internal/store"
	"github.com/i474232898/weather-flow/internal/weather"
)

// FlowName is the name runs of this pipeline are recorded under.
const FlowName = "weather-flow"

// Step names in execution order.
const (
	StepGetWeatherInfo         = "get-weather-info"
	StepWriteToCSV             = "write-to-csv"
	StepLoadSecret             = "load-secret"
	StepCreateMarkdownArtifact = "create-markdown-artifact"
)

// Config holds the fixed names the pipeline works with.
type Config struct {
	CSVPath             string
	SecretName          string
	ArtifactKey         string
	ArtifactDescription string
}

func (c Config) withDefaults() Config {
	if c.CSVPath == "" {
		c.CSVPath = export.DefaultCSVPath
	}
	if c.SecretName == "" {
		c.SecretName = secrets.DefaultName
	}
	if c.ArtifactKey == "" {
		c.ArtifactKey = artifact.DefaultKey
	}
	if c.ArtifactDescription == "" {
		c.ArtifactDescription = artifact.DefaultDescription
	}
	return c
}

// State is passed from step to step within one run.
type State struct {
	Params   weather.Params
	Dataset  *weather.Dataset
	Artifact artifact.Artifact

	secret string
}

// Pipeline fetches weather, writes it to CSV, loads a secret and publishes a
// markdown report, in that order.
type Pipeline struct {
	cfg       Config
	fetcher   *weather.Fetcher
	secrets   secrets.Store
	publisher artifact.Publisher
	flow      *flow.Flow[State]

	// Runs share the CSV file.
	mu sync.Mutex
}

// New wires the four steps into a flow. runs may be nil.
func New(cfg Config, fetcher *weather.Fetcher, secretStore secrets.Store, publisher artifact.Publisher, runs store.RunStore) *Pipeline {
	p := &Pipeline{
		cfg:       cfg.withDefaults(),
		fetcher:   fetcher,
		secrets:   secretStore,
		publisher: publisher,
	}

	p.flow = flow.New[State](FlowName).
		Step(StepGetWeatherInfo, p.getWeatherInfo).
		Step(StepWriteToCSV, p.writeToCSV).
		Step(StepLoadSecret, p.loadSecret).
		Step(StepCreateMarkdownArtifact, p.createMarkdownArtifact)
	if runs != nil {
		p.flow.WithStore(runs)
	}
	return p
}

// WithOutput redirects run logs to w.
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	p.flow.WithOutput(w)
	return p
}

// Name returns the flow name.
func (p *Pipeline) Name() string {
	return p.flow.Name()
}

// Run executes one flow run for params. Runs never overlap.
func (p *Pipeline) Run(ctx context.Context, params weather.Params) (store.Run, error) {
	run, _, err := p.RunWithState(ctx, params)
	return run, err
}

// RunWithState is Run that also returns the final state of the run.
func (p *Pipeline) RunWithState(ctx context.Context, params weather.Params) (store.Run, *State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := &State{Params: params.Clone()}
	run, err := p.flow.Run(ctx, state)
	return run, state, err
}
