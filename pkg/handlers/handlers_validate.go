package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ValidateInput checks a planning request without running the solver.
// Malformed JSON is a 400; a well-formed but unplannable input comes
// back as a 200 carrying the verdict.
func (h *Handler) ValidateInput(c *gin.Context) {
	var input PlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	tasks, participants, err := buildInputs(input)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	if err := h.Planner.Inspect(tasks, participants); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"task_count":        len(tasks),
			"participant_count": len(participants),
		},
	})
}
