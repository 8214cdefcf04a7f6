package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-crm/internal/dispatch"
	"whatsapp-crm/internal/models"
)

type CustomerHandler struct {
	db *gorm.DB
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{db: db}
}

// conversationSummary is one row of the inbox listing.
type conversationSummary struct {
	Customer    models.Customer `json:"customer"`
	LastMessage *models.Message `json:"last_message,omitempty"`
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	customers, err := tc.Repo.ListCustomers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customers"})
		return
	}

	summaries := make([]conversationSummary, 0, len(customers))
	for _, customer := range customers {
		last, err := tc.Repo.LastMessage(customer.ID)
		if err != nil {
			last = nil
		}
		summaries = append(summaries, conversationSummary{Customer: customer, LastMessage: last})
	}

	c.JSON(http.StatusOK, summaries)
}

type createCustomerRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phone, err := dispatch.NormalizePhone(req.Phone, tc.Config.DefaultCountryCode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer := &models.Customer{Phone: phone, Name: req.Name}
	if err := tc.Repo.SaveCustomer(customer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save customer"})
		return
	}

	c.JSON(http.StatusCreated, customer)
}

type updateLeadStageRequest struct {
	LeadStage string `json:"lead_stage" binding:"required"`
}

func (h *CustomerHandler) UpdateLeadStage(c *gin.Context) {
	tc := resolveTenant(c, h.db)
	if tc == nil {
		return
	}

	customerID, err := strconv.ParseUint(c.Param("customerId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}

	var req updateLeadStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := tc.Repo.UpdateLeadStage(uint(customerID), req.LeadStage); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update lead stage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
