package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-crm/internal/database"
)

type CreditHandler struct {
	db *gorm.DB
}

func NewCreditHandler(db *gorm.DB) *CreditHandler {
	return &CreditHandler{db: db}
}

func (h *CreditHandler) Balance(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	balance, err := database.NewCreditLedger(h.db).Balance(tc.Agent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"agent_id": tc.Agent.ID, "credits": balance})
}

type topupRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

func (h *CreditHandler) Topup(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	var req topupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := database.NewCreditLedger(h.db).Topup(tc.Agent.ID, req.Amount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "topup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"agent_id": tc.Agent.ID, "credits": balance})
}
