package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podlove/podlove-backend/internal/usecase/billing"
)

type BillingHandler struct {
	billingUseCase *billing.BillingUseCase
}

func NewBillingHandler(billingUseCase *billing.BillingUseCase) *BillingHandler {
	return &BillingHandler{billingUseCase: billingUseCase}
}

// SubscriptionPaid handles POST /billing/webhook/subscription-paid.
// Signature verification happens upstream; by the time the event reaches
// this handler it is trusted.
func (h *BillingHandler) SubscriptionPaid(c *gin.Context) {
	var evt billing.SubscriptionPaidEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		respondError(c, http.StatusBadRequest, "invalid event payload")
		return
	}

	outcome, err := h.billingUseCase.HandleSubscriptionPaid(c.Request.Context(), &evt)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "subscription processed", outcome)
}
