package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stockService service.StockService
	users        repository.UserRepository
}

func NewStockHandler(stockService service.StockService, users repository.UserRepository) *StockHandler {
	return &StockHandler{stockService: stockService, users: users}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	viewRoles := middleware.RequireRole(
		model.RolePurchasing, model.RolePurchasingManager,
		model.RoleWarehouse, model.RoleAdmin,
	)
	manageRoles := middleware.RequireRole(model.RoleWarehouse, model.RoleAdmin)

	stocks := router.Group("/stocks")
	{
		stocks.GET("", viewRoles, h.ListStocks)
		stocks.GET("/low", viewRoles, h.ListLowStocks)
		stocks.GET("/:id", viewRoles, h.GetStock)
		stocks.POST("", manageRoles, h.CreateStock)
		stocks.PUT("/:id", manageRoles, h.UpdateStock)
		stocks.POST("/:id/adjust", manageRoles, h.AdjustStock)
	}
}

// CreateStock handles POST /stocks
// @Summary      Create a stock item
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateStockDTO  true  "Create Stock Payload"
// @Success      201      {object}  response.Response{data=model.Stock}
// @Failure      400      {object}  response.Response
// @Router       /stocks [post]
func (h *StockHandler) CreateStock(c *gin.Context) {
	var dto service.CreateStockDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	stock, err := h.stockService.Create(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, stock))
}

// ListStocks handles GET /stocks
// @Summary      List stock items
// @Tags         stocks
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number"
// @Param        limit  query  int  false  "Items per page"
// @Success      200  {object}  response.Response{data=[]model.Stock}
// @Router       /stocks [get]
func (h *StockHandler) ListStocks(c *gin.Context) {
	params := pagination.Parse(c)
	stocks, total, err := h.stockService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, stocks, params.Page, params.Limit, total))
}

// ListLowStocks handles GET /stocks/low
// @Summary      List stock at or below its minimum threshold
// @Tags         stocks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Stock}
// @Router       /stocks/low [get]
func (h *StockHandler) ListLowStocks(c *gin.Context) {
	stocks, err := h.stockService.ListLow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stocks))
}

// GetStock handles GET /stocks/:id
// @Summary      Get stock detail
// @Tags         stocks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Stock ID"
// @Success      200  {object}  response.Response{data=model.Stock}
// @Failure      404  {object}  response.Response
// @Router       /stocks/{id} [get]
func (h *StockHandler) GetStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	stock, err := h.stockService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stock))
}

// UpdateStock handles PUT /stocks/:id for descriptive fields
// @Summary      Update stock details
// @Description  Updates name, category, unit, location and minimum threshold
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Stock ID"
// @Param        payload  body      service.UpdateStockDTO  true  "Update Stock Payload"
// @Success      200      {object}  response.Response{data=model.Stock}
// @Failure      400      {object}  response.Response
// @Router       /stocks/{id} [put]
func (h *StockHandler) UpdateStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var dto service.UpdateStockDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	stock, err := h.stockService.Update(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stock))
}

// AdjustStock handles POST /stocks/:id/adjust
// @Summary      Adjust on-hand quantity
// @Description  Applies a signed delta under the version contract
// @Tags         stocks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Stock ID"
// @Param        payload  body      service.AdjustStockDTO  true  "Adjust Payload"
// @Success      200      {object}  response.Response{data=model.Stock}
// @Failure      409      {object}  response.Response
// @Router       /stocks/{id}/adjust [post]
func (h *StockHandler) AdjustStock(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var dto service.AdjustStockDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	stock, err := h.stockService.Adjust(c.Request.Context(), id, actor, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stock))
}
