package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"order_form/internal/domain"
	"order_form/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type FormHandler struct {
	sessions *usecase.SessionStore
	popovers *usecase.Popovers
	journal  domain.SubmissionRepository
	log      *logrus.Logger
}

func NewFormHandler(sessions *usecase.SessionStore, popovers *usecase.Popovers, journal domain.SubmissionRepository, logger *logrus.Logger) *FormHandler {
	return &FormHandler{
		sessions: sessions,
		popovers: popovers,
		journal:  journal,
		log:      logger,
	}
}

func (h *FormHandler) RegisterRoutes(router gin.IRouter) {
	sessions := router.Group("/orders/add-order/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.DeleteSession)
		sessions.POST("/:id/rows", h.AddRow)
		sessions.DELETE("/:id/rows/:slot", h.DeleteRow)
		sessions.PUT("/:id/rows/:slot/product", h.SelectProduct)
		sessions.PUT("/:id/rows/:slot/quantity", h.SetQuantity)
		sessions.POST("/:id/submit", h.Submit)
	}
	router.POST("/popovers/:indicator/toggle", h.TogglePopover)
	router.GET("/submissions", h.ListSubmissions)
}

func (h *FormHandler) fail(c *gin.Context, err error, message string) {
	ErrorResponse(c, mapErrorToStatus(err), message+": "+err.Error(), nil)
}

func (h *FormHandler) form(c *gin.Context) (*usecase.OrderForm, bool) {
	form, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.log.Warnf("Unknown form session requested: %s", c.Param("id"))
		h.fail(c, err, "Failed to find form")
		return nil, false
	}
	return form, true
}

func (h *FormHandler) slot(c *gin.Context) (int, bool) {
	slotStr := c.Param("slot")
	slot, err := strconv.Atoi(slotStr)
	if err != nil || slot <= 0 {
		h.log.Warnf("Invalid slot parameter: %s", slotStr)
		ErrorResponse(c, http.StatusBadRequest, "Invalid slot format", nil)
		return 0, false
	}
	return slot, true
}

func (h *FormHandler) CreateSession(c *gin.Context) {
	form, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.log.Errorf("Failed to open order form: %v", err)
		h.fail(c, err, "Failed to load catalog")
		return
	}
	SuccessResponse(c, http.StatusCreated, "Order form ready", form.State())
}

func (h *FormHandler) GetSession(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, "Order form retrieved", form.State())
}

func (h *FormHandler) DeleteSession(c *gin.Context) {
	h.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *FormHandler) AddRow(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	row := form.AddRow()
	SuccessResponse(c, http.StatusCreated, "Row added", row)
}

func (h *FormHandler) DeleteRow(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	slot, ok := h.slot(c)
	if !ok {
		return
	}
	form.DeleteRow(slot)
	c.Status(http.StatusNoContent)
}

type selectProductRequest struct {
	Product *domain.ID `json:"product" binding:"required"`
}

func (h *FormHandler) SelectProduct(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	slot, ok := h.slot(c)
	if !ok {
		return
	}
	var req selectProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	row, err := form.SelectProduct(c.Request.Context(), slot, *req.Product)
	var priceErr *domain.PriceLoadError
	switch {
	case errors.As(err, &priceErr):
		// the row stays usable without a price; the form shows no error
		SuccessResponse(c, http.StatusOK, "Product selected", row)
	case err != nil:
		h.fail(c, err, "Failed to select product")
	default:
		SuccessResponse(c, http.StatusOK, "Product selected", row)
	}
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *FormHandler) SetQuantity(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	slot, ok := h.slot(c)
	if !ok {
		return
	}
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	row, err := form.SetQuantity(slot, *req.Quantity)
	if err != nil {
		h.fail(c, err, "Failed to update quantity")
		return
	}
	SuccessResponse(c, http.StatusOK, "Quantity updated", row)
}

type submitRequest struct {
	Customer domain.ID `json:"customer"`
}

func (h *FormHandler) Submit(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	outcome, err := form.Submit(c.Request.Context(), req.Customer)
	var rejected *domain.SubmissionRejectedError
	switch {
	case errors.As(err, &rejected):
		ErrorResponse(c, http.StatusUnprocessableEntity, rejected.Message, outcome)
	case err != nil:
		h.fail(c, err, "Failed to submit order")
	default:
		SuccessResponse(c, http.StatusOK, "Order created successfully", outcome)
	}
}

func (h *FormHandler) TogglePopover(c *gin.Context) {
	contentID, visible, err := h.popovers.Toggle(c.Param("indicator"))
	if err != nil {
		h.fail(c, err, "Failed to toggle popover")
		return
	}
	SuccessResponse(c, http.StatusOK, "Popover toggled", gin.H{"content": contentID, "visible": visible})
}

func (h *FormHandler) ListSubmissions(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		h.log.Warnf("Invalid limit parameter '%s', using default 20", limitStr)
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	records, err := h.journal.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.log.Errorf("Failed to list submissions: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve submissions", nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "Submissions retrieved successfully", records)
}
