package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"StaySentinel/internal/model"
	"StaySentinel/internal/publisher"
	"StaySentinel/internal/recorder"
)

const (
	defaultRunsLimit = 10
	maxRunsLimit     = 100
)

type SnapshotHandler struct {
	path     string
	recorder recorder.Recorder
}

func NewSnapshotHandler(path string, rec recorder.Recorder) *SnapshotHandler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &SnapshotHandler{path: path, recorder: rec}
}

// GetSnapshot serves the last written snapshot file as-is.
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	data, err := publisher.ReadSnapshot(h.path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// GetRuns returns the most recent run summaries, newest first.
func (h *SnapshotHandler) GetRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.recorder.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
