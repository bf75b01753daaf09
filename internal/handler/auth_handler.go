package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/middleware"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/repository"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/response"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/service"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  *service.AuthService
	employeeRepo *repository.EmployeeRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, employeeRepo *repository.EmployeeRepository) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		employeeRepo: employeeRepo,
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password, checks for existing login (rejects if active), returns JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	employee, err := h.employeeRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(employee.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateToken(c.Request.Context(), employee.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrLoginActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"employee": gin.H{
			"id":    employee.ID,
			"email": employee.Email,
			"name":  employee.Name,
		},
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Logs out the currently authenticated employee.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetLogin(c.Request.Context(), claims.EmployeeID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetProfile godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated employee.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	employee, err := h.employeeRepo.GetByID(c.Request.Context(), claims.EmployeeID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"employee": gin.H{
			"id":    employee.ID,
			"email": employee.Email,
			"name":  employee.Name,
		},
	})
}
