package subscription

import (
	"errors"
	"net/http"
	"strconv"

	"boxflow/internal/api"
	"boxflow/internal/auth"
	"boxflow/internal/email"
	"boxflow/internal/logger"
	"boxflow/internal/member"
	"boxflow/internal/metrics"
	"boxflow/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo         Repository
	paymentRepo  payment.Repository
	memberRepo   member.Repository
	emailService *email.Service
}

func NewHandler(db *sqlx.DB, emailService *email.Service) *Handler {
	return &Handler{
		repo:         NewRepository(db),
		paymentRepo:  payment.NewRepository(db),
		memberRepo:   member.NewRepository(db),
		emailService: emailService,
	}
}

type Plan struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	VisitsLimit *int   `json:"visits_limit,omitempty"`
}

func getPlans() []Plan {
	basicLimit := 8
	standardLimit := 12

	return []Plan{
		{
			Type:        "basic_8",
			Name:        "Plano Basico",
			Description: "8 check-ins por mes",
			PriceCents:  14000,
			VisitsLimit: &basicLimit,
		},
		{
			Type:        "standard_12",
			Name:        "Plano Padrao",
			Description: "12 check-ins por mes",
			PriceCents:  18000,
			VisitsLimit: &standardLimit,
		},
		{
			Type:        "unlimited",
			Name:        "Plano Livre",
			Description: "Check-ins ilimitados no mes",
			PriceCents:  25000,
			VisitsLimit: nil,
		},
	}
}

func findPlan(planType string) (Plan, error) {
	for _, p := range getPlans() {
		if p.Type == planType {
			return p, nil
		}
	}
	return Plan{}, errors.New("unknown plan type")
}

type CreateSubscriptionRequest struct {
	Type string `json:"type" binding:"required"`
}

type CreateSubscriptionResponse struct {
	Subscription *Subscription `json:"subscription"`
	PaidWith     string        `json:"paid_with"`
	AmountCents  int64         `json:"amount_cents"`
}

// Create godoc
// @Summary      Buy a plan
// @Description  Charges the member's account and activates a monthly plan.
// @Tags         subscriptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateSubscriptionRequest  true  "Plan type"
// @Success      201      {object}  CreateSubscriptionResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /subscriptions [post]
func (h *Handler) Create(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Member not authenticated"})
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	plan, err := findPlan(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unknown plan type"})
		return
	}

	ctx := c.Request.Context()

	if err := h.paymentRepo.AddTransaction(ctx, memberID, -plan.PriceCents, "subscription_payment"); err != nil {
		if errors.Is(err, payment.ErrInsufficientBalance) {
			c.JSON(http.StatusPaymentRequired, api.ErrorResponse{Error: "insufficient account balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to charge account"})
		return
	}

	sub, err := h.repo.CreateSubscription(ctx, memberID, PlanType(plan.Type), plan.PriceCents, plan.VisitsLimit)
	if err != nil {
		logger.Errorf("Failed to create subscription for member %d: %v", memberID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create subscription"})
		return
	}
	logger.Infof("Subscription created: Type=%s, Member=%d", plan.Type, memberID)
	metrics.RecordSubscription(plan.Type)
	metrics.RecordPayment("subscription_payment")

	if m, err := h.memberRepo.FindByID(ctx, memberID); err == nil {
		h.emailService.SendSubscriptionReceipt(ctx, m.Email, m.Name, plan.Name, plan.PriceCents)
	}

	c.JSON(http.StatusCreated, CreateSubscriptionResponse{
		Subscription: sub,
		PaidWith:     "account",
		AmountCents:  plan.PriceCents,
	})
}

// ListMy godoc
// @Summary      List my active plans
// @Tags         subscriptions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Subscription
// @Failure      500  {object}  api.ErrorResponse
// @Router       /subscriptions [get]
func (h *Handler) ListMy(c *gin.Context) {
	memberID, ok := auth.GetMemberID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Member not authenticated"})
		return
	}

	subs, err := h.repo.ListActiveByMember(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// ListPlans godoc
// @Summary      List available plans
// @Tags         subscriptions
// @Produce      json
// @Success      200  {array}  Plan
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, getPlans())
}

// ListForMember godoc
// @Summary      List a member's subscription history
// @Tags         admin,subscriptions
// @Security     BearerAuth
// @Produce      json
// @Param        memberID  path      int  true  "Member ID"
// @Success      200       {array}   Subscription
// @Failure      400       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /admin/members/{memberID}/subscriptions [get]
func (h *Handler) ListForMember(c *gin.Context) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	subs, err := h.repo.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}
