package consent

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/providercard/providercard/internal/platform/auth"
	"github.com/providercard/providercard/internal/platform/webhook"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes binds consent management onto the bearer-token
// protected api group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/consents", h.List)
	api.POST("/consents", h.Create)
	api.GET("/consents/:id", h.Get)
	api.PUT("/consents/:id", h.Update)
	api.POST("/consents/:id/revoke", h.Revoke)
	api.POST("/consents/:id/test-webhook", h.TestWebhook)
	api.GET("/webhook-deliveries", h.ListDeliveries)
}

func (h *Handler) List(c echo.Context) error {
	providerID, err := callerID(c)
	if err != nil {
		return err
	}
	consents, err := h.svc.List(c.Request().Context(), providerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if consents == nil {
		consents = []*Consent{}
	}
	return c.JSON(http.StatusOK, consents)
}

func (h *Handler) Create(c echo.Context) error {
	providerID, err := callerID(c)
	if err != nil {
		return err
	}
	var grant Consent
	if err := c.Bind(&grant); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	grant.ProviderID = providerID
	if err := h.svc.Create(c.Request().Context(), &grant); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, grant)
}

func (h *Handler) Get(c echo.Context) error {
	providerID, id, err := callerAndConsentID(c)
	if err != nil {
		return err
	}
	grant, err := h.svc.Get(c.Request().Context(), providerID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "consent not found")
	}
	return c.JSON(http.StatusOK, grant)
}

func (h *Handler) Update(c echo.Context) error {
	providerID, id, err := callerAndConsentID(c)
	if err != nil {
		return err
	}
	var req Consent
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.ID = id
	grant, err := h.svc.Update(c.Request().Context(), providerID, &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, grant)
}

func (h *Handler) Revoke(c echo.Context) error {
	providerID, id, err := callerAndConsentID(c)
	if err != nil {
		return err
	}
	grant, err := h.svc.Revoke(c.Request().Context(), providerID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, grant)
}

func (h *Handler) TestWebhook(c echo.Context) error {
	providerID, id, err := callerAndConsentID(c)
	if err != nil {
		return err
	}
	result, err := h.svc.TestWebhook(c.Request().Context(), providerID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ListDeliveries(c echo.Context) error {
	providerID, err := callerID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	deliveries, err := h.svc.ListDeliveries(c.Request().Context(), providerID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if deliveries == nil {
		deliveries = []*webhook.Delivery{}
	}
	return c.JSON(http.StatusOK, deliveries)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.ProviderID(c))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	return id, nil
}

func callerAndConsentID(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	providerID, err := callerID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return providerID, id, nil
}
