package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tg-coursesync/internal/chats"
	"tg-coursesync/internal/models"
	"tg-coursesync/internal/storage"
)

type chatHandler struct {
	service *chats.Service
}

// chatResponse is the wire shape of a chat. Slow mode travels as the delay
// in seconds, matching what Telegram itself exposes.
type chatResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Course       string  `json:"course"`
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	SlowMode     int     `json:"slow_mode"`
	AllReactions bool    `json:"all_reactions"`
	Status       string  `json:"status"`
	TelegramID   *int64  `json:"telegram_id,omitempty"`
	InviteLink   *string `json:"invite_link,omitempty"`
}

func toChatResponse(chat *models.Chat) chatResponse {
	return chatResponse{
		ID:           chat.ID.String(),
		Title:        chat.Title,
		Course:       chat.Course,
		Type:         string(chat.Type),
		Description:  chat.Description,
		SlowMode:     chat.SlowMode.Seconds(),
		AllReactions: chat.AllReactions,
		Status:       string(chat.Status),
		TelegramID:   chat.TelegramID,
		InviteLink:   chat.InviteLink,
	}
}

type createChatRequest struct {
	Title        string `json:"title" binding:"required"`
	Course       string `json:"course" binding:"required"`
	Type         string `json:"type" binding:"required"`
	Description  string `json:"description"`
	SlowMode     int    `json:"slow_mode"`
	AllReactions bool   `json:"all_reactions"`
}

type updateChatRequest struct {
	Title        *string `json:"title"`
	Course       *string `json:"course"`
	Description  *string `json:"description"`
	SlowMode     *int    `json:"slow_mode"`
	AllReactions *bool   `json:"all_reactions"`
}

func (h *chatHandler) list(c *gin.Context) {
	filter := storage.ChatFilter{Course: c.Query("course")}

	var result []*models.Chat
	err := h.service.Filter(filter, func(chat *models.Chat) error {
		result = append(result, chat.Clone())
		return nil
	})
	if err != nil {
		renderError(c, err)
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "text/csv") {
		writeChatsCSV(c, result)
		return
	}

	responses := make([]chatResponse, 0, len(result))
	for _, chat := range result {
		responses = append(responses, toChatResponse(chat))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *chatHandler) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid chat id"})
		return
	}

	chat, err := h.service.Get(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChatResponse(chat))
}

func (h *chatHandler) create(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := chatFromRequest(req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Create(chat); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChatResponse(chat))
}

func (h *chatHandler) update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid chat id"})
		return
	}

	var req updateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.service.Update(id, func(chat *models.Chat) error {
		if req.Title != nil {
			chat.Title = *req.Title
		}
		if req.Course != nil {
			chat.Course = *req.Course
		}
		if req.Description != nil {
			chat.Description = *req.Description
		}
		if req.SlowMode != nil {
			mode, ok := models.SlowModeFromSeconds(*req.SlowMode)
			if !ok {
				return fmt.Errorf("unsupported slow mode %d: %w", *req.SlowMode, chats.ErrInvalid)
			}
			chat.SlowMode = mode
		}
		if req.AllReactions != nil {
			chat.AllReactions = *req.AllReactions
		}
		// Any accepted edit sends the chat back through reconciliation.
		chat.Status = models.ChatStatusUpdating
		return nil
	})
	if err != nil {
		renderError(c, err)
		return
	}

	chat, err := h.service.Get(id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChatResponse(chat))
}

func (h *chatHandler) remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid chat id"})
		return
	}

	forced := c.Query("forced") == "true"
	if err := h.service.Delete(id, forced); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

var chatCSVHeader = []string{"id", "title", "course", "type", "description", "slow_mode", "all_reactions", "status", "telegram_id", "invite_link"}

func writeChatsCSV(c *gin.Context, list []*models.Chat) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="chats.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(chatCSVHeader)
	for _, chat := range list {
		telegramID := ""
		if chat.TelegramID != nil {
			telegramID = strconv.FormatInt(*chat.TelegramID, 10)
		}
		inviteLink := ""
		if chat.InviteLink != nil {
			inviteLink = *chat.InviteLink
		}
		_ = w.Write([]string{
			chat.ID.String(),
			chat.Title,
			chat.Course,
			string(chat.Type),
			chat.Description,
			strconv.Itoa(chat.SlowMode.Seconds()),
			strconv.FormatBool(chat.AllReactions),
			string(chat.Status),
			telegramID,
			inviteLink,
		})
	}
	w.Flush()
}

// importCSV bulk-creates chats from a CSV body with columns
// title,course,type,description,slow_mode,all_reactions. A leading header
// row is tolerated. The import is not atomic: earlier rows stay created
// when a later row fails.
func (h *chatHandler) importCSV(c *gin.Context) {
	reader := csv.NewReader(c.Request.Body)
	reader.FieldsPerRecord = -1

	var imported int
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("line %d: %v", line, err)})
			return
		}
		if line == 1 && len(record) > 0 && record[0] == "title" {
			continue
		}
		if len(record) < 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("line %d: expected at least title,course,type", line)})
			return
		}

		req := createChatRequest{
			Title:  strings.TrimSpace(record[0]),
			Course: strings.TrimSpace(record[1]),
			Type:   strings.TrimSpace(record[2]),
		}
		if len(record) > 3 {
			req.Description = record[3]
		}
		if len(record) > 4 && record[4] != "" {
			seconds, err := strconv.Atoi(record[4])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("line %d: bad slow_mode: %v", line, err)})
				return
			}
			req.SlowMode = seconds
		}
		if len(record) > 5 && record[5] != "" {
			all, err := strconv.ParseBool(record[5])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("line %d: bad all_reactions: %v", line, err)})
				return
			}
			req.AllReactions = all
		}

		chat, err := chatFromRequest(req)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("line %d: %v", line, err)})
			return
		}
		if err := h.service.Create(chat); err != nil {
			renderError(c, err)
			return
		}
		imported++
	}

	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

func chatFromRequest(req createChatRequest) (*models.Chat, error) {
	chatType, ok := models.ParseChatType(req.Type)
	if !ok {
		return nil, fmt.Errorf("unknown chat type %q: %w", req.Type, chats.ErrInvalid)
	}
	slowMode, ok := models.SlowModeFromSeconds(req.SlowMode)
	if !ok {
		return nil, fmt.Errorf("unsupported slow mode %d: %w", req.SlowMode, chats.ErrInvalid)
	}

	return &models.Chat{
		Title:        req.Title,
		Course:       strings.ToUpper(strings.TrimSpace(req.Course)),
		Type:         chatType,
		Description:  req.Description,
		SlowMode:     slowMode,
		AllReactions: req.AllReactions,
	}, nil
}
