package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/triage_inbox/backend/internal/config"
	"github.com/triage_inbox/backend/internal/conversation"
	"github.com/triage_inbox/backend/internal/metrics"
	"github.com/triage_inbox/backend/internal/models"
	"github.com/triage_inbox/backend/internal/service"
)

// Pinger is the optional database dependency checked by Healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Store          *conversation.Store
	DB             Pinger
	Validator      *validator.Validate
	Logger         zerolog.Logger
	Directory      config.Directory
	DefaultAgentID string
}

type InboxItem struct {
	models.Message
	CustomerName string               `json:"customer_name"`
	UrgencyLevel service.UrgencyLevel `json:"urgency_level"`
	Unread       bool                 `json:"unread"`
}

type InboxParams struct {
	Q      string `form:"q"`
	Sort   string `form:"sort" validate:"omitempty,oneof=urgency newest oldest"`
	Status string `form:"status" validate:"omitempty,oneof=open resolved"`
}

type ConversationView struct {
	Profile  models.UserProfile `json:"profile"`
	Messages []models.Message   `json:"messages"`
	IsOpen   bool               `json:"is_open"`
}

type AppendRequest struct {
	Body      string  `json:"body" validate:"required"`
	Direction string  `json:"direction" validate:"omitempty,oneof=inbound outbound"`
	AgentID   *string `json:"agent_id"`
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "messages": h.Store.Len()})
}

// @Summary Inbox
// @Description Messages filtered by status and search text, ordered by sort mode
// @Tags inbox
// @Produce json
// @Param q query string false "Search text"
// @Param sort query string false "urgency | newest | oldest"
// @Param status query string false "open | resolved"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/inbox [get]
func (h *Handler) Inbox(c *gin.Context) {
	var params InboxParams
	if err := c.ShouldBindQuery(&params); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query", err.Error())
		return
	}
	if err := h.Validator.Struct(params); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	sortOpt, _ := service.ParseSortOption(params.Sort)
	status, _ := service.ParseStatus(params.Status)

	messages, profiles := h.Store.Snapshot()
	result := service.Inbox(messages, profiles, service.InboxQuery{
		Search: params.Q,
		Sort:   sortOpt,
		Status: status,
	})

	items := make([]InboxItem, 0, len(result.Items))
	unread := 0
	for _, m := range result.Items {
		item := InboxItem{
			Message:      m,
			CustomerName: profiles[m.UserID].Name,
			UrgencyLevel: service.LevelForScore(m.UrgencyScore),
			Unread:       m.Direction == models.DirectionInbound && !m.IsRead,
		}
		if item.Unread {
			unread++
		}
		items = append(items, item)
	}

	stages := map[string]int{}
	for _, s := range result.Stages {
		stages[s.Name] = s.Count
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  len(items),
		"unread": unread,
		"sort":   sortOpt,
		"status": status,
		"stages": stages,
	})
}

// @Summary Conversation transcript
// @Tags conversations
// @Produce json
// @Param userId path string true "Customer ID"
// @Success 200 {object} ConversationView
// @Failure 404 {object} map[string]any
// @Router /api/conversations/{userId} [get]
func (h *Handler) Conversation(c *gin.Context) {
	userID := c.Param("userId")
	view, ok := h.conversationView(userID)
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Conversation not found", nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Append message
// @Description Send an agent reply (outbound) or record an incoming customer message (inbound)
// @Tags conversations
// @Accept json
// @Produce json
// @Param userId path string true "Customer ID"
// @Success 201 {object} models.Message
// @Failure 400 {object} map[string]any
// @Router /api/conversations/{userId}/messages [post]
func (h *Handler) AppendMessage(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "body must not be blank", nil)
		return
	}
	if userID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "userId is required", nil)
		return
	}

	direction := models.DirectionInbound
	if req.Direction == string(models.DirectionOutbound) {
		direction = models.DirectionOutbound
	}
	var agentID *string
	if direction == models.DirectionOutbound {
		agentID = req.AgentID
		if agentID == nil || strings.TrimSpace(*agentID) == "" {
			def := h.DefaultAgentID
			agentID = &def
		}
	}

	msg := h.Store.Append(userID, req.Body, direction, agentID)
	metrics.MessagesAppended.WithLabelValues(string(direction)).Inc()
	metrics.StoreMessages.Set(float64(h.Store.Len()))
	h.Logger.Info().
		Str("message_id", msg.ID).
		Str("user_id", userID).
		Str("direction", string(direction)).
		Int("urgency", msg.UrgencyScore).
		Msg("message appended")
	c.JSON(http.StatusCreated, msg)
}

// @Summary Resolve conversation
// @Tags conversations
// @Produce json
// @Param userId path string true "Customer ID"
// @Success 200 {object} map[string]any
// @Router /api/conversations/{userId}/resolve [post]
func (h *Handler) ResolveConversation(c *gin.Context) {
	userID := c.Param("userId")
	changed := h.Store.ResolveConversation(userID)
	if changed > 0 {
		metrics.MessagesResolved.WithLabelValues("conversation").Add(float64(changed))
		h.Logger.Info().Str("user_id", userID).Int("resolved", changed).Msg("conversation resolved")
	}
	messages, _ := h.Store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"resolved": changed,
		"is_open":  service.HasOpenMessages(messages, userID),
	})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	changed := h.Store.MarkAsRead(c.Param("id"))
	if changed {
		metrics.MessagesRead.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "changed": changed})
}

func (h *Handler) ResolveMessage(c *gin.Context) {
	changed := h.Store.ResolveMessage(c.Param("id"))
	if changed {
		metrics.MessagesResolved.WithLabelValues("message").Inc()
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "changed": changed})
}

func (h *Handler) AgentsList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.Directory.Agents})
}

func (h *Handler) CannedResponsesList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.Directory.CannedResponses})
}

func (h *Handler) conversationView(userID string) (ConversationView, bool) {
	profile, ok := h.Store.Profile(userID)
	if !ok {
		return ConversationView{}, false
	}
	messages, _ := h.Store.Snapshot()
	return ConversationView{
		Profile:  profile,
		Messages: service.Transcript(messages, userID),
		IsOpen:   service.HasOpenMessages(messages, userID),
	}, true
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
