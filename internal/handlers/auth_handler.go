package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/services"
	"pennywise/internal/validator"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService services.AuthServicer
	userService services.UserServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthServicer, userService services.UserServicer) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// CredentialsRequest represents the register and login payload
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=72"`
}

// LoginRequest represents the login payload. The email is not syntax checked:
// an unusable address simply fails to match.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func authResponse(message string, pair *services.TokenPair) AuthResponse {
	return AuthResponse{
		Message:      message,
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user with email and password
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body CredentialsRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input or user already exists"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}

	_, pair, err := h.authService.Register(requestContext(c), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse("User registered successfully", pair))
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and get a token
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}

	_, pair, err := h.authService.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse("Login successful", pair))
}

// Refresh exchanges a refresh token for a new token pair
// @Summary     Refresh tokens
// @Description Exchange a refresh token for a new access and refresh token. The presented token is consumed.
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body RefreshRequest true "Refresh token"
// @Success     200 {object} AuthResponse "New token pair"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Token is not valid"
// @Failure     404 {object} ErrorResponse "Refresh tokens disabled"
// @Router      /users/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	if !h.authService.RefreshEnabled() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrNotFound, "Refresh tokens are not enabled"))
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}

	pair, err := h.authService.Refresh(requestContext(c), req.RefreshToken)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse("Token refreshed", pair))
}

// Logout revokes a refresh token
// @Summary     Logout
// @Description Revoke a refresh token. Unknown tokens are ignored.
// @Tags        users
// @Accept      json
// @Param       request body RefreshRequest true "Refresh token"
// @Success     204 "Token revoked"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, validator.BindingError(err))
		return
	}

	if err := h.authService.Logout(requestContext(c), req.RefreshToken); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetProfile returns the authenticated user
// @Summary     Get current user
// @Description Get the authenticated user's id and email
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     403 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users/me [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{ID: user.ID, Email: user.Email})
}
