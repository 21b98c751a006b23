package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type VendorHandler struct {
	vendorService service.VendorService
}

func NewVendorHandler(vendorService service.VendorService) *VendorHandler {
	return &VendorHandler{vendorService: vendorService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *VendorHandler) RegisterRoutes(router *gin.RouterGroup) {
	viewRoles := middleware.RequireRole(
		model.RolePurchasing, model.RolePurchasingManager, model.RoleAdmin,
	)
	manageRoles := middleware.RequireRole(model.RolePurchasing, model.RoleAdmin)

	vendors := router.Group("/vendors")
	{
		vendors.GET("", viewRoles, h.ListVendors)
		vendors.GET("/:id", viewRoles, h.GetVendor)
		vendors.POST("", manageRoles, h.CreateVendor)
		vendors.PUT("/:id", manageRoles, h.UpdateVendor)
		vendors.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteVendor)
	}
}

// CreateVendor handles POST /vendors
// @Summary      Create a vendor
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateVendorDTO  true  "Create Vendor Payload"
// @Success      201      {object}  response.Response{data=model.Vendor}
// @Failure      400      {object}  response.Response
// @Router       /vendors [post]
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	var dto service.CreateVendorDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vendor, err := h.vendorService.Create(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vendor))
}

// ListVendors handles GET /vendors
// @Summary      List vendors
// @Tags         vendors
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number"
// @Param        limit  query  int  false  "Items per page"
// @Success      200  {object}  response.Response{data=[]model.Vendor}
// @Router       /vendors [get]
func (h *VendorHandler) ListVendors(c *gin.Context) {
	params := pagination.Parse(c)
	vendors, total, err := h.vendorService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, vendors, params.Page, params.Limit, total))
}

// GetVendor handles GET /vendors/:id
// @Summary      Get vendor detail
// @Tags         vendors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Vendor ID"
// @Success      200  {object}  response.Response{data=model.Vendor}
// @Failure      404  {object}  response.Response
// @Router       /vendors/{id} [get]
func (h *VendorHandler) GetVendor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	vendor, err := h.vendorService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// UpdateVendor handles PUT /vendors/:id
// @Summary      Update vendor
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Vendor ID"
// @Param        payload  body      service.UpdateVendorDTO  true  "Update Vendor Payload"
// @Success      200      {object}  response.Response{data=model.Vendor}
// @Failure      400      {object}  response.Response
// @Router       /vendors/{id} [put]
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var dto service.UpdateVendorDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vendor, err := h.vendorService.Update(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// DeleteVendor handles DELETE /vendors/:id
// @Summary      Delete vendor
// @Description  Soft deletes a vendor by ID
// @Tags         vendors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Vendor ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /vendors/{id} [delete]
func (h *VendorHandler) DeleteVendor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.vendorService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Vendor deleted successfully"))
}
