package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-flow/internal/artifact"
	"github.com/i474232898/weather-flow/internal/flow"
	"github.com/i474232898/weather-flow/internal/secrets"
	"github.com/i474232898/weather-flow/internal/store"
	"github.com/i474232898/weather-flow/internal/weather"
	"github.com/i474232898/weather-flow/internal/weather/providers"
)

const mockForecast = `{
	"latitude": 52.52,
	"longitude": 13.419998,
	"utc_offset_seconds": 0,
	"timezone": "GMT",
	"timezone_abbreviation": "GMT",
	"elevation": 38.0,
	"hourly_units": {"time": "unixtime", "temperature_2m": "°C"},
	"hourly": {"time": [1704067200, 1704070800], "temperature_2m": [-0.5, 0.25]}
}`

var berlin = weather.Params{Latitude: 52.52, Longitude: 13.41, Hourly: []string{"temperature_2m"}}

type fixture struct {
	pipeline  *Pipeline
	runs      *store.MemoryStore
	artifacts *artifact.SQLiteStore
	csvPath   string
	logs      *bytes.Buffer
}

func newFixture(t *testing.T, publisher artifact.Publisher) *fixture {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mockForecast))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	client, err := providers.NewClient(providers.ClientConfig{
		CachePath:   filepath.Join(dir, "cache.sqlite"),
		CacheExpiry: time.Hour,
		Timeout:     5 * time.Second,
		Backoff:     providers.BackoffConfig{MaxRetries: 0},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	db, err := store.OpenSQLite(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	artifacts, err := artifact.NewSQLiteStore(db)
	require.NoError(t, err)
	if publisher == nil {
		publisher = artifacts
	}

	fx := &fixture{
		runs:      store.NewMemoryStore(0, 0),
		artifacts: artifacts,
		csvPath:   filepath.Join(dir, "weather.csv"),
		logs:      &bytes.Buffer{},
	}
	fetcher := weather.NewFetcher(providers.NewOpenMeteoProvider(client, srv.URL))
	fx.pipeline = New(Config{CSVPath: fx.csvPath}, fetcher, secrets.NewEnvStore(), publisher, fx.runs).
		WithOutput(fx.logs)
	return fx
}

func TestPipelineEndToEnd(t *testing.T) {
	t.Setenv("SECRET_EXTREMELY_SECRET_INFORMATION", "hunter2")
	fx := newFixture(t, nil)
	ctx := context.Background()

	run, state, err := fx.pipeline.RunWithState(ctx, berlin)
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, run.Status)
	require.Equal(t, FlowName, run.Flow)

	var steps []string
	for _, s := range run.Steps {
		steps = append(steps, s.Name)
	}
	require.Equal(t, []string{StepGetWeatherInfo, StepWriteToCSV, StepLoadSecret, StepCreateMarkdownArtifact}, steps)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 2, state.Dataset.Len())
	require.True(t, state.Dataset.Rows[0].Date.Equal(t0))
	require.True(t, state.Dataset.Rows[1].Date.Equal(t0.Add(time.Hour)))

	data, err := os.ReadFile(fx.csvPath)
	require.NoError(t, err)
	require.Equal(t,
		",date,temperature_2m\n"+
			"0,2024-01-01 00:00:00+00:00,-0.5\n"+
			"1,2024-01-01 01:00:00+00:00,0.25\n",
		string(data))

	latest, err := fx.artifacts.Latest(ctx, artifact.DefaultKey)
	require.NoError(t, err)
	require.Equal(t, artifact.DefaultDescription, latest.Description)
	require.Equal(t, run.ID, latest.FlowRunID)
	require.Equal(t, run.Name, latest.FlowRunName)
	require.Contains(t, latest.Data, "2024-01-01 01:00:00+00:00")

	logs := fx.logs.String()
	require.Contains(t, logs, "Starting flow "+run.Name)
	require.Contains(t, logs, "Elevation 38 m asl")
	require.NotContains(t, logs, "hunter2", "secret values must not be logged")
}

func TestPipelineRerunAddsArtifactVersion(t *testing.T) {
	t.Setenv("SECRET_EXTREMELY_SECRET_INFORMATION", "hunter2")
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.pipeline.Run(ctx, berlin)
	require.NoError(t, err)
	_, err = fx.pipeline.Run(ctx, berlin)
	require.NoError(t, err)

	versions, err := fx.artifacts.Versions(ctx, artifact.DefaultKey)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, versions[0].Data, versions[1].Data)

	runs, err := fx.runs.ListRuns(FlowName)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestPipelineMissingSecretAbortsRun(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	run, err := fx.pipeline.Run(ctx, berlin)
	require.ErrorIs(t, err, flow.ErrStepFailed)
	require.ErrorIs(t, err, secrets.ErrNotFound)
	require.Equal(t, store.StatusFailed, run.Status)

	last := run.Steps[len(run.Steps)-1]
	require.Equal(t, StepLoadSecret, last.Name)
	require.Equal(t, store.StatusFailed, last.Status)

	_, err = fx.artifacts.Latest(ctx, artifact.DefaultKey)
	require.ErrorIs(t, err, artifact.ErrNotFound, "no artifact may be published after a failed step")

	// The CSV written before the failure stays on disk.
	_, err = os.Stat(fx.csvPath)
	require.NoError(t, err)
}

type failingPublisher struct{}

func (failingPublisher) Create(ctx context.Context, a artifact.Artifact) (artifact.Artifact, error) {
	return artifact.Artifact{}, errors.New("tracking service unavailable")
}

func TestPipelinePublishFailureFailsRun(t *testing.T) {
	t.Setenv("SECRET_EXTREMELY_SECRET_INFORMATION", "hunter2")
	fx := newFixture(t, failingPublisher{})

	run, err := fx.pipeline.Run(context.Background(), berlin)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "tracking service unavailable"))
	require.Equal(t, store.StatusFailed, run.Status)
	require.Equal(t, StepCreateMarkdownArtifact, run.Steps[len(run.Steps)-1].Name)
}

func TestPipelineInvalidParamsFailFirstStep(t *testing.T) {
	fx := newFixture(t, nil)

	run, err := fx.pipeline.Run(context.Background(), weather.Params{Latitude: 100, Hourly: []string{"temperature_2m"}})
	require.Error(t, err)
	require.Len(t, run.Steps, 1)
	require.Equal(t, StepGetWeatherInfo, run.Steps[0].Name)

	_, err = os.Stat(fx.csvPath)
	require.True(t, os.IsNotExist(err))
}
