package handler

import (
	"net/http"

	"clubmail/internal/commands"
	"clubmail/internal/domain/message"
	"clubmail/internal/services"
	"clubmail/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	messages *services.MessageService
	inbox    *services.InboxService
}

func NewMessageHandler(messages *services.MessageService, inbox *services.InboxService) *MessageHandler {
	return &MessageHandler{messages: messages, inbox: inbox}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	target, err := buildTarget(req.Target)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid target", "INVALID_REQUEST"))
		return
	}

	result, err := h.messages.HandleSend(c.Request.Context(), commands.SendMessageCommand{
		SenderID: userID,
		Subject:  req.Subject,
		Content:  req.Content,
		Target:   target,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	msg := result.Payload.(message.Message)
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewMessageView(msg)))
}

func (h *MessageHandler) Reply(c *gin.Context) {
	parentID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}

	var req httpdto.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	result, err := h.messages.HandleReply(c.Request.Context(), commands.ReplyMessageCommand{
		ParentID: parentID,
		SenderID: userID,
		Content:  req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	msg := result.Payload.(message.Message)
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewMessageView(msg)))
}

// Get returns the full thread the message belongs to. Requesting a reply
// yields the same thread as requesting its root.
func (h *MessageHandler) Get(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	thread, err := h.inbox.BuildThread(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewThreadView(thread)))
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": message.StatusRead}))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if _, err := h.messages.HandleDelete(c.Request.Context(), commands.DeleteMessageCommand{
		MessageID: messageID,
		ActorID:   userID,
	}); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

// Recipients returns the delivery ledger of a message. Only the sender and
// moderators may inspect it.
func (h *MessageHandler) Recipients(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	msg, err := h.messages.GetByID(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	role, _ := services.RoleFromContext(c.Request.Context())
	if msg.SenderID != userID && !moderatorRole(role) {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
		return
	}

	entries, err := h.messages.Recipients(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]httpdto.RecipientView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, httpdto.NewRecipientView(entry))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"recipients": views}))
}

func buildTarget(req httpdto.TargetRequest) (commands.Target, error) {
	target := commands.Target{Kind: req.Kind, Role: req.Role}
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			return commands.Target{}, err
		}
		target.UserID = id
	}
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return commands.Target{}, err
		}
		target.UserIDs = append(target.UserIDs, id)
	}
	return target, nil
}
