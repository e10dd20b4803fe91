package controllers

import (
	"net/http"
	"strings"
	"time"

	"protocol-review-api/config"
	"protocol-review-api/middleware"
	"protocol-review-api/models"
	"protocol-review-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	Message string      `json:"message"`
}

// AuthController issues bearer tokens for personnel accounts.
type AuthController struct {
	db  *gorm.DB
	jwt config.JWTConfig
	log *zap.SugaredLogger
	now func() time.Time
}

// NewAuthController returns a login handler backed by the users table.
func NewAuthController(db *gorm.DB, jwtCfg config.JWTConfig, log *zap.SugaredLogger) *AuthController {
	return &AuthController{db: db, jwt: jwtCfg, log: log, now: time.Now}
}

// Login handles user login
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(utils.SanitizeInput(req.Email))
	if !utils.ValidateEmail(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	var user models.User
	if err := ac.db.WithContext(c.Request.Context()).
		Where("email = ? AND delete_at IS NULL", email).
		First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := ac.generateToken(user)
	if err != nil {
		ac.log.Errorw("failed to sign token", "user_id", user.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		User:    user,
		Message: "Login successful",
	})
}

func (ac *AuthController) generateToken(user models.User) (string, error) {
	expireHours := ac.jwt.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}

	now := ac.now()
	claims := middleware.Claims{
		UserID: user.UserID,
		Email:  user.Email,
		RoleID: user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(ac.jwt.Secret))
}
