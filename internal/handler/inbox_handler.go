package handler

import (
	"net/http"

	"clubmail/internal/services"
	"clubmail/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type InboxHandler struct {
	service *services.InboxService
}

func NewInboxHandler(service *services.InboxService) *InboxHandler {
	return &InboxHandler{service: service}
}

func (h *InboxHandler) UnreadCount(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountView{Count: count}))
}

func (h *InboxHandler) Unread(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	messages, err := h.service.UnreadMessages(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]httpdto.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, httpdto.NewMessageView(m))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": views}))
}

func (h *InboxHandler) List(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	threads, err := h.service.BuildInbox(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]httpdto.ThreadView, 0, len(threads))
	for _, t := range threads {
		views = append(views, httpdto.NewThreadView(t))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"threads": views}))
}
