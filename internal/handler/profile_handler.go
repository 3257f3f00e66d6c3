package handler

import (
	"Lumen/internal/middleware"
	"Lumen/internal/model"
	"Lumen/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileHandler interface {
	CreateProfile(c *gin.Context)
	GetMyProfile(c *gin.Context)
	UpdateMyProfile(c *gin.Context)
	GetProfile(c *gin.Context)
	SearchProfiles(c *gin.Context)
}

type profileHandler struct {
	service service.ProfileService
	logger  *zap.Logger
}

func NewProfileHandler(service service.ProfileService, logger *zap.Logger) ProfileHandler {
	return &profileHandler{
		service: service,
		logger:  logger,
	}
}

type createProfileRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// CreateProfile registers the profile of the authenticated account (signup).
func (h *profileHandler) CreateProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "Invalid request body")
		return
	}

	profile, err := h.service.CreateProfile(c.Request.Context(), middleware.UserID(c), req.Username, req.DisplayName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, profile, "Profile created")
}

func (h *profileHandler) GetMyProfile(c *gin.Context) {
	h.getProfile(c, middleware.UserID(c))
}

func (h *profileHandler) GetProfile(c *gin.Context) {
	h.getProfile(c, c.Param("id"))
}

func (h *profileHandler) getProfile(c *gin.Context, id string) {
	profile, err := h.service.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, profile, "Profile retrieved successfully")
}

func (h *profileHandler) UpdateMyProfile(c *gin.Context) {
	var update model.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respond(c, http.StatusBadRequest, nil, "Invalid request body")
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), middleware.UserID(c), update)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, profile, "Profile updated")
}

func (h *profileHandler) SearchProfiles(c *gin.Context) {
	results, err := h.service.Search(c.Request.Context(), middleware.UserID(c), c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"profiles": results}, "Search completed")
}
