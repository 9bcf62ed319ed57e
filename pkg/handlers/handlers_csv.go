package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mhoangvslev/recordara-planner/pkg/csvio"
)

// PlanCSV handles CSV file uploads for planning
func (h *Handler) PlanCSV(c *gin.Context) {
	tasksFile, _ := c.FormFile("tasks_file")
	participantsFile, _ := c.FormFile("participants_file")

	if tasksFile == nil || participantsFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tasks_file and participants_file are required"})
		return
	}

	tf, err := tasksFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open tasks file"})
		return
	}
	defer tf.Close()
	tasks, err := csvio.ReadTasks(tf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pf, err := participantsFile.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open participants file"})
		return
	}
	defer pf.Close()
	participants, err := csvio.ReadParticipants(pf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Planner.Plan(c.Request.Context(), tasks, participants)
	if err != nil {
		h.planError(c, "csv", err, len(tasks), len(participants))
		return
	}

	h.RecordUsage(c, len(tasks), len(participants))
	h.recordRun(c, "csv", res.Status, res, len(tasks), len(participants))

	// Export CSV
	var out strings.Builder
	if err := csvio.WriteAssignments(&out, res.Assignments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to serialize assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"csv":     out.String(),
		"run_id":  res.RunID,
		"status":  res.Status,
		"summary": res.Summary,
	})
}
