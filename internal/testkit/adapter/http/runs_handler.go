package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"mongo-testkit/internal/shared/database"
	"mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
)

// DefaultPruneAge applies when a prune request names no age.
const DefaultPruneAge = 24 * time.Hour

// RunJanitor finds and drops databases left behind by test runs.
type RunJanitor interface {
	ListRuns(ctx context.Context) ([]database.RunInfo, error)
	DropRun(ctx context.Context, timestamp string) ([]string, error)
	DropDatabase(ctx context.Context, name string) error
	PruneOlderThan(ctx context.Context, age time.Duration) ([]string, error)
}

// RunsHandler exposes the run janitor over HTTP.
type RunsHandler struct {
	Runs RunJanitor
	Log  logger.Logger
}

// NewRunsHandler creates a handler.
func NewRunsHandler(runs RunJanitor, log logger.Logger) *RunsHandler {
	return &RunsHandler{Runs: runs, Log: log.WithComponent("runs_handler")}
}

// RegisterRoutes mounts the janitor routes under /api/v1.
func (h *RunsHandler) RegisterRoutes(router fiber.Router) {
	api := router.Group("/api/v1")
	api.Get("/runs", h.ListRuns)
	api.Post("/runs/prune", h.PruneRuns)
	api.Delete("/runs/:timestamp", h.DropRun)
	api.Delete("/databases/:name", h.DropDatabase)
}

func (h *RunsHandler) ListRuns(c *fiber.Ctx) error {
	runs, err := h.Runs.ListRuns(c.UserContext())
	if err != nil {
		return h.fail(c, "list_runs_failed", err)
	}
	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}

func (h *RunsHandler) DropRun(c *fiber.Ctx) error {
	timestamp := c.Params("timestamp")
	h.Log.WithFields(map[string]interface{}{"timestamp": timestamp}).Debug("Dropping test run via HTTP")

	dropped, err := h.Runs.DropRun(c.UserContext(), timestamp)
	if err != nil {
		return h.fail(c, "drop_run_failed", err)
	}
	return c.JSON(fiber.Map{
		"timestamp": timestamp,
		"dropped":   dropped,
	})
}

func (h *RunsHandler) DropDatabase(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.Runs.DropDatabase(c.UserContext(), name); err != nil {
		return h.fail(c, "drop_database_failed", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *RunsHandler) PruneRuns(c *fiber.Ctx) error {
	age := DefaultPruneAge
	if raw := c.Query("olderThan"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_older_than",
				"message": "olderThan must be a positive duration such as 12h",
			})
		}
		age = parsed
	}

	dropped, err := h.Runs.PruneOlderThan(c.UserContext(), age)
	if err != nil {
		return h.fail(c, "prune_failed", err)
	}
	return c.JSON(fiber.Map{
		"olderThan": age.String(),
		"dropped":   dropped,
	})
}

func (h *RunsHandler) fail(c *fiber.Ctx, code string, err error) error {
	appErr := errors.WrapError(err, "run janitor request failed")
	status := errors.HTTPStatus(appErr)
	entry := h.Log.WithFields(map[string]interface{}{
		"path":  c.Path(),
		"type":  appErr.Type,
		"error": err.Error(),
	})
	if status >= fiber.StatusInternalServerError {
		entry.Error("Run janitor request failed")
	} else {
		entry.Warn("Run janitor request rejected")
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"type":    appErr.Type,
		"message": err.Error(),
	})
}
