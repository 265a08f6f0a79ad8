package delivery

import (
	"net/http"
	"strconv"

	maildomain "mailboard-backend/internal/mail/domain"
	maildto "mailboard-backend/internal/mail/dto"
	"mailboard-backend/internal/mail/usecase"

	"github.com/gin-gonic/gin"
)

// EmailHandler exposes the board endpoints
type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emailUsecase usecase.EmailUsecase) *EmailHandler {
	return &EmailHandler{emailUsecase: emailUsecase}
}

func (h *EmailHandler) GetAllMailboxes(c *gin.Context) {
	userID := c.GetString("userID")

	mailboxes, err := h.emailUsecase.GetAllMailboxes(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, maildto.MailboxesResponse{Mailboxes: mailboxes})
}

func (h *EmailHandler) GetEmailsByStatus(c *gin.Context) {
	userID := c.GetString("userID")
	status := c.Param("status")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	emails, total, err := h.emailUsecase.GetEmailsByStatus(userID, status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, maildto.EmailsResponse{
		Emails: emails,
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

func (h *EmailHandler) GetEmailByID(c *gin.Context) {
	userID := c.GetString("userID")

	email, err := h.emailUsecase.GetEmailByID(userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, email)
}

func (h *EmailHandler) MarkAsRead(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.MarkReadRequest
	req.Read = true
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.emailUsecase.MarkEmailRead(userID, c.Param("id"), req.Read); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (h *EmailHandler) MoveEmail(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.MoveEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.emailUsecase.MoveEmail(userID, c.Param("id"), req.TargetColumnID, req.SourceColumnID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "moved", "column": req.TargetColumnID})
}

func (h *EmailHandler) SnoozeEmail(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.SnoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.emailUsecase.SnoozeEmail(userID, c.Param("id"), req.Until); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "snoozed", "until": req.Until})
}

func (h *EmailHandler) UnsnoozeEmail(c *gin.Context) {
	userID := c.GetString("userID")

	column, err := h.emailUsecase.UnsnoozeEmail(userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unsnoozed", "column": column})
}

func (h *EmailHandler) StartWatch(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.emailUsecase.StartWatch(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, maildto.WatchResponse{
		HistoryID:  result.HistoryID.String(),
		Expiration: result.Expiration,
	})
}

func (h *EmailHandler) StopWatch(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.emailUsecase.StopWatch(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "watch stopped"})
}

func (h *EmailHandler) GetKanbanColumns(c *gin.Context) {
	userID := c.GetString("userID")

	columns, err := h.emailUsecase.GetKanbanColumns(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *EmailHandler) CreateKanbanColumn(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.ColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	column := &maildomain.KanbanColumn{
		ColumnID:       req.ColumnID,
		Name:           req.Name,
		Order:          req.Order,
		GmailLabelID:   req.GmailLabelID,
		RemoveLabelIDs: req.RemoveLabelIDs,
	}
	if err := h.emailUsecase.CreateKanbanColumn(userID, column); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, column)
}

func (h *EmailHandler) UpdateKanbanColumn(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.ColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	column := &maildomain.KanbanColumn{
		ColumnID:       c.Param("column_id"),
		Name:           req.Name,
		Order:          req.Order,
		GmailLabelID:   req.GmailLabelID,
		RemoveLabelIDs: req.RemoveLabelIDs,
	}
	if err := h.emailUsecase.UpdateKanbanColumn(userID, column); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, column)
}

func (h *EmailHandler) DeleteKanbanColumn(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.emailUsecase.DeleteKanbanColumn(userID, c.Param("column_id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *EmailHandler) UpdateKanbanColumnOrders(c *gin.Context) {
	userID := c.GetString("userID")

	var req maildto.ColumnOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.emailUsecase.UpdateKanbanColumnOrders(userID, req.Orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
