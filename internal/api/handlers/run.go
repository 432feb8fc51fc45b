package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"StaySentinel/internal/logging"
	"StaySentinel/internal/model"
	"StaySentinel/internal/pipeline"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context, params pipeline.Params, log logrus.FieldLogger) (*pipeline.Result, error)
	Running() bool
}

// RunRequest is accepted as JSON body or query string. Empty fields use the configured defaults.
type RunRequest struct {
	OwnerID    string `json:"owner_id" form:"owner_id"`
	Locality   string `json:"locality" form:"locality"`
	WindowDays int    `json:"window_days" form:"window_days"`
}

type RunHandler struct {
	runner       Runner
	defaultOwner string
	logLevel     string
	console      io.Writer
}

func NewRunHandler(runner Runner, defaultOwner, logLevel string) *RunHandler {
	return &RunHandler{
		runner:       runner,
		defaultOwner: defaultOwner,
		logLevel:     logLevel,
		console:      os.Stdout,
	}
}

// RunScrape runs one pass synchronously and returns its captured log.
func (h *RunHandler) RunScrape(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		owner = h.defaultOwner
	}

	var output bytes.Buffer
	log := logging.New(h.logLevel, io.MultiWriter(&output, h.console))

	// The pass keeps going if the caller disconnects so partial results still get published.
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := h.runner.Run(ctx, pipeline.Params{
		Owner:      owner,
		Locality:   req.Locality,
		WindowDays: req.WindowDays,
		Trigger:    model.TriggerHTTP,
	}, log)

	switch {
	case errors.Is(err, pipeline.ErrMissingOwner):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": output.String() + err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"output": output.String(), "run": res.Summary})
	}
}

// Status reports whether a run is in flight.
func (h *RunHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.runner.Running()})
}
