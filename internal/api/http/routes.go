package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-flow/internal/artifact"
	"github.com/i474232898/weather-flow/internal/store"
	"github.com/i474232898/weather-flow/internal/weather"
)

var validate = validator.New()

// Runner executes one flow run.
type Runner interface {
	Name() string
	Run(ctx context.Context, params weather.Params) (store.Run, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, runner Runner, runs store.RunStore, artifacts artifact.Reader) {
	v1 := app.Group("/api/v1")

	v1.Get("/runs", func(c *fiber.Ctx) error {
		list, err := runs.ListRuns(runner.Name())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(fiber.Map{"runs": []store.Run{}})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list flow runs")
		}
		return c.JSON(fiber.Map{"runs": list})
	})

	v1.Get("/runs/:id", func(c *fiber.Ctx) error {
		run, err := runs.GetRun(c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no flow run with that id")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch flow run")
		}
		return c.JSON(run)
	})

	v1.Post("/runs", func(c *fiber.Ctx) error {
		var req runRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		run, err := runner.Run(c.UserContext(), req.toParams())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"run":     run,
			})
		}
		return c.Status(fiber.StatusCreated).JSON(run)
	})

	v1.Get("/artifacts/:key", func(c *fiber.Ctx) error {
		key := c.Params("key")
		if err := artifact.ValidateKey(key); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		a, err := artifacts.Latest(c.UserContext(), key)
		if err != nil {
			return artifactError(err)
		}
		if c.Query("format") == "markdown" {
			c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
			return c.SendString(a.Data)
		}
		return c.JSON(a)
	})

	v1.Get("/artifacts/:key/versions", func(c *fiber.Ctx) error {
		key := c.Params("key")
		if err := artifact.ValidateKey(key); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		versions, err := artifacts.Versions(c.UserContext(), key)
		if err != nil {
			return artifactError(err)
		}
		return c.JSON(fiber.Map{
			"key":      key,
			"versions": versions,
		})
	})
}

func artifactError(err error) error {
	if errors.Is(err, artifact.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "no artifact with that key")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch artifact")
}

// runRequest holds the body of a run trigger.
type runRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Hourly    []string `json:"hourly" validate:"required,min=1,dive,required"`
}

func (r runRequest) toParams() weather.Params {
	return weather.Params{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Hourly:    r.Hourly,
	}
}
