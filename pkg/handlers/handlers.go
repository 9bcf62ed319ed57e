package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mhoangvslev/recordara-planner/pkg/auth"
	"github.com/mhoangvslev/recordara-planner/pkg/database"
	"github.com/mhoangvslev/recordara-planner/pkg/models"
	"github.com/mhoangvslev/recordara-planner/pkg/planner"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB      *gorm.DB
	Planner *planner.Planner
	Logger  *zap.Logger
}

// TaskInput mirrors one row of the tasks roster.
type TaskInput struct {
	TaskID          string `json:"task_id" binding:"required"`
	TaskDescription string `json:"task_description"`
	Location        string `json:"location"`
	Date            string `json:"date" binding:"required"`
	Duration        string `json:"duration" binding:"required"`
	MinPeople       *int   `json:"min_people"`
	MaxPeople       *int   `json:"max_people"`
}

// ParticipantInput mirrors one row of the participants roster.
type ParticipantInput struct {
	FirstName          string   `json:"first_name"`
	LastName           string   `json:"last_name"`
	Role               string   `json:"role" binding:"required"`
	ConstraintEventIDs []string `json:"constraint_event_ids"`
}

// PlanInput is the JSON planning request body.
type PlanInput struct {
	Tasks        []TaskInput        `json:"tasks" binding:"required,min=1,dive"`
	Participants []ParticipantInput `json:"participants" binding:"required,min=1,dive"`
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the API key for planner routes using HMAC
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		userID, err := auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      userID,
			RateLimit: 10000,
		})

		c.Set("apiKey", &apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// PlanJSON handles the JSON-based planning request
func (h *Handler) PlanJSON(c *gin.Context) {
	var input PlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, participants, err := buildInputs(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Planner.Plan(c.Request.Context(), tasks, participants)
	if err != nil {
		h.planError(c, "json", err, len(tasks), len(participants))
		return
	}

	h.RecordUsage(c, len(tasks), len(participants))
	h.recordRun(c, "json", res.Status, res, len(tasks), len(participants))

	c.JSON(http.StatusOK, res)
}

func buildInputs(in PlanInput) ([]models.Task, []models.Participant, error) {
	tasks := make([]models.Task, 0, len(in.Tasks))
	for _, t := range in.Tasks {
		task, err := models.NewTask(t.TaskID, t.TaskDescription, t.Location, t.Date, t.Duration, t.MinPeople, t.MaxPeople)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, task)
	}

	participants := make([]models.Participant, 0, len(in.Participants))
	for _, p := range in.Participants {
		participant, err := models.NewParticipant(p.FirstName, p.LastName, p.Role, p.ConstraintEventIDs)
		if err != nil {
			return nil, nil, err
		}
		participants = append(participants, participant)
	}
	return tasks, participants, nil
}

// planError maps pipeline failures onto HTTP statuses: bad data is the
// caller's fault, proven infeasibility is unprocessable, a blown search
// budget is a timeout and anything else is on us.
func (h *Handler) planError(c *gin.Context, source string, err error, taskCount, participantCount int) {
	var perr *models.ParseError
	var ierr *planner.InfeasibilityError

	switch {
	case errors.Is(err, planner.ErrNoTasks), errors.Is(err, planner.ErrNoParticipants), errors.As(err, &perr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &ierr):
		h.recordRun(c, source, "INFEASIBLE", nil, taskCount, participantCount)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "details": ierr.Details})
	case errors.Is(err, planner.ErrBudgetExhausted):
		h.recordRun(c, source, "UNKNOWN", nil, taskCount, participantCount)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("planning request failed", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, taskCount, participantCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":      gorm.Expr("request_count + ?", 1),
			"total_tasks":        gorm.Expr("total_tasks + ?", taskCount),
			"total_participants": gorm.Expr("total_participants + ?", participantCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:             apiKey.ID,
		Date:              today,
		RequestCount:      1,
		TotalTasks:        taskCount,
		TotalParticipants: participantCount,
	})
}

// recordRun persists one planning outcome for the runs listing. A nil
// result records a run that reached the solver but produced no plan.
func (h *Handler) recordRun(c *gin.Context, source, status string, res *planner.Result, taskCount, participantCount int) {
	run := database.PlanRun{
		Source:           source,
		Status:           status,
		TaskCount:        taskCount,
		ParticipantCount: participantCount,
	}
	if res != nil {
		run.ID = res.RunID
		run.Objective = res.Objective
		run.AssignmentCount = len(res.Assignments)
		run.SolveMillis = res.SolveMillis
	} else {
		run.ID = uuid.NewString()
	}
	if apiKeyRaw, exists := c.Get("apiKey"); exists {
		run.KeyName = apiKeyRaw.(*database.APIKey).Name
	}
	if err := h.DB.Create(&run).Error; err != nil && h.Logger != nil {
		h.Logger.Warn("could not persist plan run", zap.Error(err))
	}
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		RateLimit int    `json:"rate_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = 10000
	}

	// Generate key using HMAC
	key := auth.GenerateHMACKey(req.Name)

	preview := "****"
	if len(key) > 8 {
		preview = key[:3] + "..." + key[len(key)-4:]
	}

	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: preview,
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	// The raw key is shown once, at creation
	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.APIKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	if err := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update key limit"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.APIUsage
	h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
