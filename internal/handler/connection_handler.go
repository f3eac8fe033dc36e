package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"snorq/internal/domain/connection"
	"snorq/internal/services"
	"snorq/internal/transport/httpdto"
)

// ConnectionHandler manages platform connections for an organization.
type ConnectionHandler struct {
	service *services.ConnectService
	inbox   *services.InboxService
}

func NewConnectionHandler(service *services.ConnectService, inbox *services.InboxService) *ConnectionHandler {
	return &ConnectionHandler{service: service, inbox: inbox}
}

// ConnectPages exchanges a user access token for the user's pages and links
// each one to the organization.
func (h *ConnectionHandler) ConnectPages(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid organization id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.ConnectPagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	platform := connection.PlatformFacebook
	if req.Platform != "" {
		platform = connection.Platform(req.Platform)
	}

	conns, err := h.service.ConnectPages(c.Request.Context(), orgID, userID, platform, req.UserAccessToken)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToConnectionViews(conns)))
}

// List returns the organization's platform connections.
func (h *ConnectionHandler) List(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid organization id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conns, err := h.service.ListConnections(c.Request.Context(), orgID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ToConnectionViews(conns)))
}

// Disconnect marks a connection DISCONNECTED; its conversations stay readable.
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	connID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid connection id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.service.Disconnect(c.Request.Context(), connID, userID); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Sync triggers a pull-based reconciliation run for a connection.
func (h *ConnectionHandler) Sync(c *gin.Context) {
	connID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid connection id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	report, err := h.inbox.TriggerSync(c.Request.Context(), connID, userID)
	view := httpdto.SyncReportView{
		ConversationsSeen: report.ConversationsSeen,
		MessagesApplied:   report.MessagesApplied,
		MessagesSkipped:   report.MessagesSkipped,
		Incomplete:        report.Incomplete,
	}
	if err != nil {
		if !report.Incomplete {
			writeServiceError(c, err)
			return
		}
		// Partial run: report what landed along with the first failure.
		view.Error = err.Error()
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(view))
}
