package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sshdeck/sshdeck/internal/models"
	"github.com/sshdeck/sshdeck/pkg/errors"
)

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, errors.Newf(errors.ErrInvalidInput, "server.parseID", "invalid id: %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// --- SSH key handlers ---

type addKeyRequest struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDefault bool   `json:"is_default"`
}

func (s *Server) handleAddKey(c *gin.Context) {
	var req addKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrInvalidInput, "server.handleAddKey", "invalid request body"))
		return
	}

	id, err := s.cmds.AddKey(c.Request.Context(), req.Name, req.Path, req.IsDefault)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleListKeys(c *gin.Context) {
	keys, err := s.cmds.ListKeys(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if keys == nil {
		keys = []models.SSHKey{}
	}
	c.JSON(http.StatusOK, keys)
}

func (s *Server) handleGetKey(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	key, err := s.cmds.GetKey(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

func (s *Server) handleSetDefaultKey(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.cmds.SetDefaultKey(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteKey(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleteFile := c.Query("delete_file") == "true"

	if err := s.cmds.DeleteKey(c.Request.Context(), id, deleteFile); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type generateKeyRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleGenerateKey(c *gin.Context) {
	var req generateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrInvalidInput, "server.handleGenerateKey", "invalid request body"))
		return
	}

	path, err := s.cmds.GenerateKey(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

// --- Server handlers ---

type serverRequest struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	AuthType string `json:"auth_type"`
	Password string `json:"password"`
	SSHKeyID *int64 `json:"ssh_key_id"`
}

func (r serverRequest) toModel() models.Server {
	return models.Server{
		Name:     r.Name,
		Host:     r.Host,
		Port:     r.Port,
		Username: r.Username,
		AuthType: models.AuthType(r.AuthType),
		Password: r.Password,
		SSHKeyID: r.SSHKeyID,
	}
}

func (s *Server) handleAddServer(c *gin.Context) {
	var req serverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrInvalidInput, "server.handleAddServer", "invalid request body"))
		return
	}

	id, err := s.cmds.AddServer(c.Request.Context(), req.toModel())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleListServers(c *gin.Context) {
	servers, err := s.cmds.ListServers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if servers == nil {
		servers = []models.Server{}
	}
	c.JSON(http.StatusOK, servers)
}

func (s *Server) handleGetServer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	srv, err := s.cmds.GetServer(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, srv)
}

func (s *Server) handleUpdateServer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req serverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrInvalidInput, "server.handleUpdateServer", "invalid request body"))
		return
	}

	server := req.toModel()
	server.ID = id
	if err := s.cmds.UpdateServer(c.Request.Context(), server); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteServer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.cmds.DeleteServer(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Setting handlers ---

func (s *Server) handleListSettings(c *gin.Context) {
	settings, err := s.cmds.ListSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if settings == nil {
		settings = []models.Setting{}
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleGetSetting(c *gin.Context) {
	setting, err := s.cmds.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

type updateSettingRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleUpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrInvalidInput, "server.handleUpdateSetting", "invalid request body"))
		return
	}

	if err := s.cmds.UpdateSetting(c.Request.Context(), c.Param("key"), req.Value); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
