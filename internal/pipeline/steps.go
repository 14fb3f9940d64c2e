package pipeline

import (
	"context"

	"github.com/i474232898/weather-flow/internal/artifact"
	"github.com/i474232898/weather-flow/internal/export"
	"github.com/i474232898/weather-flow/internal/flow"
	"github.com/i474232898/weather-flow/internal/report"
	"github.com/i474232898/weather-flow/internal/secrets"
)

func (p *Pipeline) getWeatherInfo(ctx context.Context, s *State) error {
	lg := flow.Logger(ctx)
	lg.Printf("INFO: Getting weather info")

	ds, err := p.fetcher.Fetch(ctx, s.Params, lg)
	if err != nil {
		return err
	}
	s.Dataset = ds
	lg.Printf("INFO: fetched %d hourly rows", ds.Len())
	return nil
}

func (p *Pipeline) writeToCSV(ctx context.Context, s *State) error {
	flow.Logger(ctx).Printf("INFO: writing weather data to %s", p.cfg.CSVPath)
	return export.WriteCSV(p.cfg.CSVPath, s.Dataset)
}

func (p *Pipeline) loadSecret(ctx context.Context, s *State) error {
	v, err := secrets.Load(ctx, p.secrets, p.cfg.SecretName)
	if err != nil {
		return err
	}
	s.secret = v
	flow.Logger(ctx).Printf("INFO: loaded secret %s: %s", p.cfg.SecretName, secrets.Mask(v))
	return nil
}

func (p *Pipeline) createMarkdownArtifact(ctx context.Context, s *State) error {
	opts := []artifact.Option{
		artifact.WithKey(p.cfg.ArtifactKey),
		artifact.WithDescription(p.cfg.ArtifactDescription),
	}
	if info, ok := flow.RunFromContext(ctx); ok {
		opts = append(opts, artifact.WithFlowRun(info.ID, info.Name))
	}

	a, err := artifact.Publish(ctx, p.publisher, report.RenderMarkdown(s.Dataset), opts...)
	if err != nil {
		return err
	}
	s.Artifact = a
	flow.Logger(ctx).Printf("INFO: published artifact %s (%s)", a.Key, a.ID)
	return nil
}
