package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linkmint/linkmint/internal/auth"
	"github.com/linkmint/linkmint/internal/core"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	User      core.User `json:"user"`
}

const minPasswordLength = 6

func (s *Server) registerHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Username == "":
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "username is required"})
		return
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "a valid email is required"})
		return
	case len(req.Password) < minPasswordLength:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "password must be at least 6 characters"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	user, err := s.users.CreateUser(c.Request.Context(), req.Username, req.Email, hash)
	if err != nil {
		s.writeError(c, err)
		return
	}

	token, err := s.auth.Issue(user.ID, user.Username, time.Now())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tokenResponse{Token: token, TokenType: "Bearer", User: user})
}

func (s *Server) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	user, err := s.users.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		s.writeError(c, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.writeError(c, core.ErrInvalidCredentials)
		return
	}

	token, err := s.auth.Issue(user.ID, user.Username, time.Now())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer", User: user})
}
