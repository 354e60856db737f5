package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/proteus100/acme-training/internal/dto"
	"github.com/proteus100/acme-training/internal/service"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookBodyLimit = 1 << 20

type WebhookHandler struct {
	svc    service.WebhookProcessor
	secret string
}

func NewWebhookHandler(svc service.WebhookProcessor, signingSecret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: signingSecret}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	// Authenticity is established by the Stripe signature, not by
	// session or CSRF token; middleware skips this route.
	e.POST("/api/v1/webhooks/stripe", h.HandleWebhook)
	e.GET("/api/v1/webhooks/stripe", h.Liveness)
	e.GET("/api/v1/webhooks/unprocessed", h.ListUnprocessed)
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, webhookBodyLimit))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		req.Header.Get("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		// no ledger entry on auth failure; the caller resends with a
		// valid signature
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	duplicate, err := h.svc.Process(req.Context(), &event)
	if err != nil {
		// non-2xx makes Stripe redeliver
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	status := "processed"
	if duplicate {
		status = "duplicate"
	}
	return c.JSON(http.StatusOK, dto.ReceivedResponse{Received: true, Status: status})
}

// Liveness answers Stripe's endpoint URL validation.
func (h *WebhookHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.LivenessResponse{Status: "ok", Service: "payment-webhooks"})
}

// ListUnprocessed surfaces ledger entries stuck unprocessed past a
// threshold, for out-of-band alerting.
func (h *WebhookHandler) ListUnprocessed(c echo.Context) error {
	minutes := 30
	if v := c.QueryParam("older_than"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid older_than")
		}
		minutes = m
	}

	events, err := h.svc.StaleEvents(c.Request().Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToStaleEventsResponse(events))
}
