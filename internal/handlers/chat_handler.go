package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"tripstars-api/internal/database"
	"tripstars-api/internal/middleware"
	"tripstars-api/internal/models"
	"tripstars-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateConversationRequest is the payload for opening a DM or group.
type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids" binding:"required"`
	IsGroup        bool     `json:"is_group"`
	Name           string   `json:"name"`
}

// UpdateConversationRequest renames a group or adjusts its participants.
type UpdateConversationRequest struct {
	Name           *string  `json:"name"`
	ParticipantIDs []string `json:"participant_ids"`
}

// SendMessageRequest is the payload for posting a message.
type SendMessageRequest struct {
	Content      string `json:"content"`
	AttachmentID string `json:"attachment_id"`
}

// MarkReadRequest lists the messages the caller has read.
type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

// TypingRequest signals typing intent over the REST fallback.
type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// conversationView is a Conversation enriched with viewer-relative fields.
type conversationView struct {
	models.Conversation
	DisplayName string `json:"display_name"`
	UnreadCount int64  `json:"unread_count"`
	IsPinned    bool   `json:"is_pinned"`
}

func viewOf(conv models.Conversation, viewerID string, unread int64) conversationView {
	return conversationView{
		Conversation: conv,
		DisplayName:  conv.DisplayNameFor(viewerID),
		UnreadCount:  unread,
		IsPinned:     conv.PinnedBy.Contains(viewerID),
	}
}

// resolveParticipants loads the given users, ensures they are active, and
// guarantees the creator is in the set. Order follows the deduplicated input.
func resolveParticipants(c *gin.Context, caller models.User, ids []string) ([]models.User, bool) {
	seen := map[string]bool{caller.ID: true}
	ordered := []string{caller.ID}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}

	users := make([]models.User, 0, len(ordered))
	db := database.GetDB()
	for _, id := range ordered {
		if id == caller.ID {
			users = append(users, caller)
			continue
		}
		var u models.User
		if err := db.Where("id = ? AND is_active = ?", id, true).First(&u).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found: " + id})
			return nil, false
		}
		users = append(users, u)
	}
	return users, true
}

// CreateConversation handles POST /api/chat/conversations. A DM between the
// same two users is deduplicated: the existing conversation is returned with
// 200 instead of creating a new one.
func CreateConversation(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participants, ok := resolveParticipants(c, caller, req.ParticipantIDs)
	if !ok {
		return
	}

	if req.IsGroup {
		if len(participants) < 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group conversations need at least 3 participants"})
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group conversations need a name"})
			return
		}
	} else if len(participants) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Direct conversations need exactly 2 participants"})
		return
	}

	db := database.GetDB()

	if !req.IsGroup {
		other := participants[1].ID
		var existing []models.Conversation
		if err := db.Where("is_group = ?", false).Find(&existing).Error; err == nil {
			for _, conv := range existing {
				if conv.HasParticipant(caller.ID) && conv.HasParticipant(other) {
					c.JSON(http.StatusOK, viewOf(conv, caller.ID, unreadCount(conv.ID, caller.ID)))
					return
				}
			}
		}
	}

	ids := make(models.StringList, len(participants))
	names := make(models.StringList, len(participants))
	for i, u := range participants {
		ids[i] = u.ID
		names[i] = u.FullName
	}

	conv := models.Conversation{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(req.Name),
		IsGroup:          req.IsGroup,
		Participants:     ids,
		ParticipantNames: names,
		CreatedBy:        caller.ID,
		PinnedBy:         models.StringList{},
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	if err := db.Create(&conv).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, viewOf(conv, caller.ID, 0))
}

func unreadCount(conversationID, userID string) int64 {
	var messages []models.Message
	if err := database.GetDB().
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID).
		Find(&messages).Error; err != nil {
		return 0
	}
	var n int64
	for _, m := range messages {
		if !m.ReadBy.Contains(userID) {
			n++
		}
	}
	return n
}

// ListConversations handles GET /api/chat/conversations: the caller's
// conversations, pinned first, then by latest activity.
func ListConversations(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	var all []models.Conversation
	if err := database.GetDB().Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	views := make([]conversationView, 0)
	for _, conv := range all {
		if !conv.HasParticipant(caller.ID) {
			continue
		}
		views = append(views, viewOf(conv, caller.ID, unreadCount(conv.ID, caller.ID)))
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].IsPinned != views[j].IsPinned {
			return views[i].IsPinned
		}
		ti, tj := views[i].CreatedAt, views[j].CreatedAt
		if views[i].LastMessageAt != nil {
			ti = *views[i].LastMessageAt
		}
		if views[j].LastMessageAt != nil {
			tj = *views[j].LastMessageAt
		}
		return ti.After(tj)
	})

	c.JSON(http.StatusOK, gin.H{"conversations": views, "count": len(views)})
}

// loadConversationFor fetches the conversation and enforces membership.
func loadConversationFor(c *gin.Context, callerID string) (models.Conversation, bool) {
	var conv models.Conversation
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&conv).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return conv, false
	}
	if !conv.HasParticipant(callerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return conv, false
	}
	return conv, true
}

// GetConversation handles GET /api/chat/conversations/:id.
func GetConversation(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	conv, ok := loadConversationFor(c, caller.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(conv, caller.ID, unreadCount(conv.ID, caller.ID)))
}

// UpdateConversation handles PATCH /api/chat/conversations/:id: rename a
// group or replace its participant set. Groups only; the creator stays a
// participant. An existing group may shrink to 2 members, unlike creation
// which requires 3.
func UpdateConversation(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	conv, ok := loadConversationFor(c, caller.ID)
	if !ok {
		return
	}
	if !conv.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Direct conversations cannot be modified"})
		return
	}

	var req UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group conversations need a name"})
			return
		}
		updates["name"] = name
	}
	if req.ParticipantIDs != nil {
		creator := models.User{ID: conv.CreatedBy}
		db := database.GetDB()
		if err := db.Where("id = ?", conv.CreatedBy).First(&creator).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation creator"})
			return
		}
		participants, ok := resolveParticipants(c, creator, req.ParticipantIDs)
		if !ok {
			return
		}
		if len(participants) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group conversations need at least 2 participants"})
			return
		}
		ids := make(models.StringList, len(participants))
		names := make(models.StringList, len(participants))
		for i, u := range participants {
			ids[i] = u.ID
			names[i] = u.FullName
		}
		updates["participants"] = ids
		updates["participant_names"] = names
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	updates["updated_at"] = time.Now().UTC()

	db := database.GetDB()
	if err := db.Model(&conv).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update conversation"})
		return
	}

	var updated models.Conversation
	if err := db.Where("id = ?", conv.ID).First(&updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
		return
	}
	c.JSON(http.StatusOK, viewOf(updated, caller.ID, unreadCount(updated.ID, caller.ID)))
}

// SendMessage handles POST /api/chat/conversations/:id/messages. The sender
// starts in read_by; the new message is fanned out to every participant over
// the hub, sender included.
func SendMessage(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.CurrentUser(c)
		conv, ok := loadConversationFor(c, caller.ID)
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(req.Content) == "" && req.AttachmentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message needs content or an attachment"})
			return
		}

		db := database.GetDB()

		msg := models.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			SenderID:       caller.ID,
			SenderName:     caller.FullName,
			Content:        req.Content,
			MessageType:    "text",
			ReadBy:         models.StringList{caller.ID},
			CreatedAt:      time.Now().UTC(),
		}

		if req.AttachmentID != "" {
			var att models.ChatAttachment
			if err := db.Where("id = ? AND conversation_id = ?", req.AttachmentID, conv.ID).First(&att).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Chat attachment not found"})
				return
			}
			msg.MessageType = "file"
			msg.AttachmentID = att.ID
			msg.AttachmentName = att.FileName
			msg.AttachmentType = att.FileType
		}

		if err := db.Create(&msg).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
			return
		}
		if msg.AttachmentID != "" {
			db.Model(&models.ChatAttachment{}).Where("id = ?", msg.AttachmentID).Update("message_id", msg.ID)
		}

		preview := msg.Content
		if preview == "" {
			preview = "📎 " + msg.AttachmentName
		}
		now := time.Now().UTC()
		db.Model(&conv).Updates(map[string]any{
			"last_message":    preview,
			"last_message_at": now,
			"updated_at":      now,
		})

		if hub != nil {
			hub.BroadcastChatMessage(conv.Participants, msg)
		}

		c.JSON(http.StatusCreated, msg)
	}
}

// ListMessages handles GET /api/chat/conversations/:id/messages with a
// before-cursor: newest page first, returned in chronological order.
func ListMessages(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	conv, ok := loadConversationFor(c, caller.ID)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	db := database.GetDB()
	query := db.Where("conversation_id = ?", conv.ID)

	if before := c.Query("before"); before != "" {
		var cursor models.Message
		if err := db.Where("id = ? AND conversation_id = ?", before, conv.ID).First(&cursor).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cursor message not found"})
			return
		}
		query = query.Where("created_at < ?", cursor.CreatedAt)
	}

	var page []models.Message
	if err := query.Order("created_at desc").Limit(limit).Find(&page).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	// Reverse into chronological order for display.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	c.JSON(http.StatusOK, gin.H{"messages": page, "count": len(page)})
}

// MarkMessagesRead handles POST /api/chat/conversations/:id/read. Adds the
// caller to read_by on each listed message (set union, never shrinks) and
// broadcasts a read receipt to the other participants.
func MarkMessagesRead(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.CurrentUser(c)
		conv, ok := loadConversationFor(c, caller.ID)
		if !ok {
			return
		}

		var req MarkReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		db := database.GetDB()

		var marked []string
		for _, id := range req.MessageIDs {
			var msg models.Message
			if err := db.Where("id = ? AND conversation_id = ?", id, conv.ID).First(&msg).Error; err != nil {
				continue
			}
			if msg.ReadBy.Contains(caller.ID) {
				continue
			}
			msg.ReadBy.Add(caller.ID)
			if err := db.Model(&msg).Update("read_by", msg.ReadBy).Error; err == nil {
				marked = append(marked, msg.ID)
			}
		}

		if len(marked) > 0 && hub != nil {
			hub.BroadcastReadReceipt(conv.ID, caller.ID, marked, conv.Participants)
		}

		c.JSON(http.StatusOK, gin.H{"marked_count": len(marked)})
	}
}

// Typing handles POST /api/chat/conversations/:id/typing, the REST fallback
// for clients without a live socket.
func Typing(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := middleware.CurrentUser(c)
		conv, ok := loadConversationFor(c, caller.ID)
		if !ok {
			return
		}

		var req TypingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if hub != nil {
			hub.BroadcastTyping(conv.ID, caller.ID, caller.FullName, conv.Participants, req.IsTyping)
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	}
}

// PinConversation handles POST /api/chat/conversations/:id/pin: toggles the
// caller's per-user pin.
func PinConversation(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	conv, ok := loadConversationFor(c, caller.ID)
	if !ok {
		return
	}

	pinned := conv.PinnedBy.Contains(caller.ID)
	if pinned {
		conv.PinnedBy.Remove(caller.ID)
	} else {
		conv.PinnedBy.Add(caller.ID)
	}

	if err := database.GetDB().Model(&conv).Update("pinned_by", conv.PinnedBy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pin"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_pinned": !pinned})
}

// PinMessage handles POST /api/chat/messages/:id/pin: toggles the single
// pin on a message. Any participant may pin or unpin.
func PinMessage(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	db := database.GetDB()

	var msg models.Message
	if err := db.Where("id = ?", c.Param("id")).First(&msg).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	var conv models.Conversation
	if err := db.Where("id = ?", msg.ConversationID).First(&conv).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if !conv.HasParticipant(caller.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	updates := map[string]any{}
	if msg.IsPinned {
		updates["is_pinned"] = false
		updates["pinned_by"] = ""
		updates["pinned_at"] = nil
	} else {
		updates["is_pinned"] = true
		updates["pinned_by"] = caller.ID
		updates["pinned_at"] = time.Now().UTC()
	}

	if err := db.Model(&msg).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pin"})
		return
	}

	var updated models.Message
	if err := db.Where("id = ?", msg.ID).First(&updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch message"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListPinnedMessages handles GET /api/chat/conversations/:id/pinned.
func ListPinnedMessages(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	conv, ok := loadConversationFor(c, caller.ID)
	if !ok {
		return
	}

	var pinned []models.Message
	if err := database.GetDB().
		Where("conversation_id = ? AND is_pinned = ?", conv.ID, true).
		Order("pinned_at desc").Find(&pinned).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pinned messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": pinned, "count": len(pinned)})
}

// SearchMessages handles GET /api/chat/search?q=: case-insensitive substring
// match over the caller's conversations, each hit tagged with the viewer's
// display name for its conversation.
func SearchMessages(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	db := database.GetDB()

	var all []models.Conversation
	if err := db.Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	names := map[string]string{}
	var convIDs []string
	for _, conv := range all {
		if conv.HasParticipant(caller.ID) {
			convIDs = append(convIDs, conv.ID)
			names[conv.ID] = conv.DisplayNameFor(caller.ID)
		}
	}
	if len(convIDs) == 0 {
		c.JSON(http.StatusOK, gin.H{"results": []any{}, "count": 0})
		return
	}

	var hits []models.Message
	if err := db.Where("conversation_id IN ? AND LOWER(content) LIKE ?", convIDs, "%"+strings.ToLower(q)+"%").
		Order("created_at desc").Limit(100).Find(&hits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search messages"})
		return
	}

	type searchResult struct {
		models.Message
		ConversationName string `json:"conversation_name"`
	}
	results := make([]searchResult, len(hits))
	for i, m := range hits {
		results[i] = searchResult{Message: m, ConversationName: names[m.ConversationID]}
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// ListAvailableUsers handles GET /api/chat/users: active users the caller can
// start a conversation with, themselves excluded.
func ListAvailableUsers(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)

	var users []models.User
	if err := database.GetDB().
		Where("is_active = ? AND id <> ?", true, caller.ID).
		Order("full_name asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// UploadChatAttachment handles POST /api/chat/conversations/:id/attachments.
// The file is linked to a message when one referencing it is sent.
func UploadChatAttachment(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	conv, ok := loadConversationFor(c, caller.ID)
	if !ok {
		return
	}

	storedPath, origName, ext, size, ok := storeUploadedFile(c, filepath.Join(uploadDir, "chat"))
	if !ok {
		return
	}

	att := models.ChatAttachment{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		UploadedBy:     caller.ID,
		UploadedByName: caller.FullName,
		FileName:       origName,
		FileType:       ext,
		FileSize:       size,
		FilePath:       storedPath,
		UploadedAt:     time.Now().UTC(),
	}
	if err := database.GetDB().Create(&att).Error; err != nil {
		removeStoredFile(storedPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save attachment"})
		return
	}

	c.JSON(http.StatusCreated, att)
}

// DownloadChatAttachment handles GET /api/chat/attachments/:id/download.
// Participants of the owning conversation only.
func DownloadChatAttachment(c *gin.Context) {
	caller, _ := middleware.CurrentUser(c)
	db := database.GetDB()

	var att models.ChatAttachment
	if err := db.Where("id = ?", c.Param("id")).First(&att).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}

	var conv models.Conversation
	if err := db.Where("id = ?", att.ConversationID).First(&conv).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if !conv.HasParticipant(caller.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this conversation"})
		return
	}

	if _, err := os.Stat(att.FilePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found on server"})
		return
	}
	c.FileAttachment(att.FilePath, att.FileName)
}
