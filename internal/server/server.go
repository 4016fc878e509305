// Package server exposes every command to the UI layer as a local
// HTTP JSON endpoint. The UI authenticates with a bearer token the
// server issues at startup.
package server

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sshdeck/sshdeck/internal/commands"
	"github.com/sshdeck/sshdeck/pkg/errors"
	"github.com/sshdeck/sshdeck/pkg/logger"
)

// Server wraps the gin engine with its dependencies
type Server struct {
	engine    *gin.Engine
	jwtSecret []byte
	cmds      *commands.Commands
}

// New creates the command server
func New(jwtSecret []byte, cmds *commands.Commands) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:    gin.New(),
		jwtSecret: jwtSecret,
		cmds:      cmds,
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// IssueToken returns a signed bearer token the UI can use for the
// lifetime of this process.
func (s *Server) IssueToken(ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "sshdeck-ui",
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// TokenAuthMiddleware validates the Authorization bearer token
func (s *Server) TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "Bearer ") {
			tokenString = tokenString[7:]
		} else {
			tokenString = ""
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Next()
	}
}

func (s *Server) setupRoutes() {
	r := s.engine

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", s.TokenAuthMiddleware())
	{
		keys := api.Group("/ssh-keys")
		{
			keys.POST("", s.handleAddKey)
			keys.GET("", s.handleListKeys)
			keys.GET("/:id", s.handleGetKey)
			keys.POST("/:id/default", s.handleSetDefaultKey)
			keys.DELETE("/:id", s.handleDeleteKey)
			keys.POST("/generate", s.handleGenerateKey)
		}

		servers := api.Group("/servers")
		{
			servers.POST("", s.handleAddServer)
			servers.GET("", s.handleListServers)
			servers.GET("/:id", s.handleGetServer)
			servers.PUT("/:id", s.handleUpdateServer)
			servers.DELETE("/:id", s.handleDeleteServer)
		}

		settings := api.Group("/settings")
		{
			settings.GET("", s.handleListSettings)
			settings.GET("/:key", s.handleGetSetting)
			settings.PUT("/:key", s.handleUpdateSetting)
		}
	}
}

// Handler returns the underlying http.Handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the server on addr and blocks
func (s *Server) Run(addr string) error {
	logger.Info("command server listening", "addr", addr)
	return s.engine.Run(addr)
}

// writeError maps tagged error codes onto HTTP statuses
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		status = http.StatusNotFound
	case errors.ErrInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrConflict:
		status = http.StatusConflict
	case errors.ErrUnauthorized:
		status = http.StatusUnauthorized
	case errors.ErrSubprocess:
		status = http.StatusBadGateway
	}

	body := gin.H{
		"error": err.Error(),
		"code":  errors.CodeOf(err),
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Suggestion != "" {
		body["suggestion"] = appErr.Suggestion
	}

	c.JSON(status, body)
}
