package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"giveaway/internal/models"
	"giveaway/internal/services"
)

// HTTPHandler binds the giveaway core to the frontend over HTTP. It owns
// no state beyond its dependencies; every request goes straight to the
// arbiter.
type HTTPHandler struct {
	arbiter          *services.ClaimArbiter
	leaderboardLimit int
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(arbiter *services.ClaimArbiter, leaderboardLimit int) *HTTPHandler {
	return &HTTPHandler{arbiter: arbiter, leaderboardLimit: leaderboardLimit}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/participants", h.RegisterParticipant)
	router.POST("/prizes/:id/claims", h.ClaimPrize)
	router.GET("/leaderboard", h.GetLeaderboard)
	router.GET("/participants/:id/progress", h.GetProgress)
	router.GET("/participants/:id/collage", h.GetCollage)
}

type registerRequest struct {
	ID   int64  `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// RegisterParticipant handles first-contact registration. Registering
// twice is not an error; the response just says nothing new was created.
func (h *HTTPHandler) RegisterParticipant(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and name are required"})
		return
	}

	created, err := h.arbiter.Register(req.ID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"created": created})
}

type claimRequest struct {
	ParticipantID int64 `json:"participant_id" binding:"required"`
}

// ClaimPrize handles a claim attempt. The outcome tag is always in the
// body; the HTTP status distinguishes the user-visible cases.
func (h *HTTPHandler) ClaimPrize(c *gin.Context) {
	prizeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prize id"})
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id is required"})
		return
	}

	decision := h.arbiter.Claim(req.ParticipantID, prizeID)
	body := gin.H{"result": decision.Result.String()}

	switch decision.Result {
	case models.ClaimAwarded:
		if decision.Image != nil {
			body["image"] = decision.Image
		}
		body["all_collected"] = decision.AllCollected
		c.JSON(http.StatusOK, body)
	case models.ClaimAlreadyOwn:
		c.JSON(http.StatusOK, body)
	case models.ClaimExhausted:
		c.JSON(http.StatusGone, body)
	case models.ClaimNotFound:
		c.JSON(http.StatusNotFound, body)
	default:
		c.JSON(http.StatusInternalServerError, body)
	}
}

// GetLeaderboard returns the top winners by distinct prizes won.
func (h *HTTPHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.arbiter.Leaderboard(h.leaderboardLimit)
	if err != nil {
		logger.Errorf("leaderboard query: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// GetProgress returns how far a participant is through the catalog.
func (h *HTTPHandler) GetProgress(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}
	won, total, err := h.arbiter.Progress(userID)
	if err != nil {
		logger.Errorf("progress for %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "progress unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"won": won, "total": total})
}

// GetCollage renders the participant's progress collage as PNG.
func (h *HTTPHandler) GetCollage(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}
	img, err := h.arbiter.CollageFor(userID)
	if err != nil {
		logger.Errorf("collage for %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "collage unavailable"})
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}
