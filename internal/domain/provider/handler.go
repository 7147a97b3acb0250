package provider

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/providercard/providercard/internal/platform/auth"
	"github.com/providercard/providercard/internal/platform/fhir"
	"github.com/providercard/providercard/pkg/pagination"
)

type Handler struct {
	svc     *Service
	tokens  *auth.Manager
	baseURL string
}

func NewHandler(svc *Service, tokens *auth.Manager, baseURL string) *Handler {
	return &Handler{svc: svc, tokens: tokens, baseURL: baseURL}
}

// RegisterRoutes binds handlers onto the three route groups: public
// (no auth), api (bearer-token protected), and the FHIR facade.
func (h *Handler) RegisterRoutes(public, api, fhirGroup *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	api.GET("/providers", h.ListProviders)
	api.GET("/providers/me", h.GetProfile)
	api.PUT("/providers/me", h.UpdateProfile)
	api.GET("/provider-roles", h.ListRoles)
	api.POST("/provider-roles", h.CreateRole)
	api.PUT("/provider-roles/:id", h.UpdateRole)
	api.DELETE("/provider-roles/:id", h.DeleteRole)
	api.GET("/export/bundle", h.ExportBundle)

	fhirGroup.GET("/Practitioner/:fhir_id", h.GetPractitionerFHIR)
	fhirGroup.GET("/PractitionerRole/:fhir_id", h.GetPractitionerRoleFHIR)
	fhirGroup.GET("/PractitionerRole", h.SearchPractitionerRolesFHIR)
	fhirGroup.POST("/validate/Practitioner", h.ValidatePractitionerFHIR)
}

// -- Auth --

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Provider    *Provider `json:"provider"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Register(c.Request().Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return validationAware(err)
	}
	token, err := h.tokens.IssueToken(p.ID.String(), p.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "issuing token")
	}
	return c.JSON(http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer", Provider: p})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	token, err := h.tokens.IssueToken(p.ID.String(), p.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "issuing token")
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", Provider: p})
}

// -- Profile --

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	providers, total, err := h.svc.providers.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(providers, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetProfile(c echo.Context) error {
	p, err := h.currentProvider(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type profileUpdateRequest struct {
	Email        *string `json:"email"`
	NPI          *string `json:"npi"`
	DEANumber    *string `json:"dea_number"`
	FirstName    *string `json:"first_name"`
	MiddleName   *string `json:"middle_name"`
	LastName     *string `json:"last_name"`
	Suffix       *string `json:"suffix"`
	Gender       *string `json:"gender"`
	Phone        *string `json:"phone"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postal_code"`
	Country      *string `json:"country"`
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	p, err := h.currentProvider(c)
	if err != nil {
		return err
	}
	var req profileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	applyProfileUpdate(p, &req)
	if err := h.svc.UpdateProfile(c.Request().Context(), p); err != nil {
		return validationAware(err)
	}
	return c.JSON(http.StatusOK, p)
}

// applyProfileUpdate copies only the fields present in the request,
// leaving absent fields untouched.
func applyProfileUpdate(p *Provider, req *profileUpdateRequest) {
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.NPI != nil {
		p.NPI = req.NPI
	}
	if req.DEANumber != nil {
		p.DEANumber = req.DEANumber
	}
	if req.MiddleName != nil {
		p.MiddleName = req.MiddleName
	}
	if req.Suffix != nil {
		p.Suffix = req.Suffix
	}
	if req.Gender != nil {
		p.Gender = req.Gender
	}
	if req.Phone != nil {
		p.Phone = req.Phone
	}
	if req.AddressLine1 != nil {
		p.AddressLine1 = req.AddressLine1
	}
	if req.AddressLine2 != nil {
		p.AddressLine2 = req.AddressLine2
	}
	if req.City != nil {
		p.City = req.City
	}
	if req.State != nil {
		p.State = req.State
	}
	if req.PostalCode != nil {
		p.PostalCode = req.PostalCode
	}
	if req.Country != nil {
		p.Country = req.Country
	}
}

// -- Roles --

func (h *Handler) ListRoles(c echo.Context) error {
	providerID, err := currentProviderID(c)
	if err != nil {
		return err
	}
	roles, err := h.svc.ListRoles(c.Request().Context(), providerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if roles == nil {
		roles = []*Role{}
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) CreateRole(c echo.Context) error {
	providerID, err := currentProviderID(c)
	if err != nil {
		return err
	}
	var role Role
	if err := c.Bind(&role); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	role.ProviderID = providerID
	created, err := h.svc.CreateRole(c.Request().Context(), &role)
	if err != nil {
		return validationAware(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateRole(c echo.Context) error {
	providerID, err := currentProviderID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var role Role
	if err := c.Bind(&role); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	role.ID = id
	role.ProviderID = providerID
	if err := h.svc.UpdateRole(c.Request().Context(), &role); err != nil {
		return validationAware(err)
	}
	return c.JSON(http.StatusOK, role)
}

func (h *Handler) DeleteRole(c echo.Context) error {
	providerID, err := currentProviderID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRole(c.Request().Context(), providerID, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Export --

func (h *Handler) ExportBundle(c echo.Context) error {
	providerID, err := currentProviderID(c)
	if err != nil {
		return err
	}
	bundle, err := h.svc.ExportBundle(c.Request().Context(), providerID, h.baseURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "provider not found")
	}
	return c.JSON(http.StatusOK, bundle)
}

// -- FHIR facade --

func (h *Handler) GetPractitionerFHIR(c echo.Context) error {
	resource, err := h.svc.PractitionerResource(c.Request().Context(), c.Param("fhir_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("fhir_id")))
	}
	return c.JSON(http.StatusOK, resource)
}

func (h *Handler) GetPractitionerRoleFHIR(c echo.Context) error {
	resource, err := h.svc.PractitionerRoleResource(c.Request().Context(), c.Param("fhir_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("PractitionerRole", c.Param("fhir_id")))
	}
	return c.JSON(http.StatusOK, resource)
}

func (h *Handler) SearchPractitionerRolesFHIR(c echo.Context) error {
	bundle, err := h.svc.SearchPractitionerRoles(c.Request().Context(), c.QueryParam("practitioner"), h.baseURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) ValidatePractitionerFHIR(c echo.Context) error {
	var resource fhir.ResourceTree
	if err := c.Bind(&resource); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result := h.svc.ValidatePractitioner(resource)
	if !result.Valid {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message": "FHIR validation failed",
			"errors":  result.Errors,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "FHIR Practitioner resource is valid",
		"resource_id": result.ResourceID,
	})
}

// -- helpers --

func currentProviderID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.ProviderID(c))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
	}
	return id, nil
}

func (h *Handler) currentProvider(c echo.Context) (*Provider, error) {
	id, err := currentProviderID(c)
	if err != nil {
		return nil, err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "provider not found")
	}
	return p, nil
}

// validationAware maps structural validation failures to a 400 with
// the full error list; anything else becomes a plain 400.
func validationAware(err error) error {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "FHIR validation failed",
			"errors":  vErr.Result.Errors,
		})
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
