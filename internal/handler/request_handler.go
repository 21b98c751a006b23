package handler

import (
	"net/http"
	"strconv"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type versionPayload struct {
	Version int `json:"version" binding:"required"`
}

type cancelPayload struct {
	Version int    `json:"version" binding:"required"`
	Reason  string `json:"reason" binding:"required,min=5,max=500"`
}

type RequestHandler struct {
	requestService service.RequestService
	users          repository.UserRepository
}

// NewRequestHandler sets up the routing dependencies for request endpoints
func NewRequestHandler(requestService service.RequestService, users repository.UserRepository) *RequestHandler {
	return &RequestHandler{requestService: requestService, users: users}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(
		model.RoleEmployee, model.RolePurchasing, model.RolePurchasingManager,
		model.RoleWarehouse, model.RoleAdmin,
	)

	requests := router.Group("/requests")
	{
		requests.GET("", anyRole, h.ListRequests)
		requests.POST("", middleware.RequireRole(model.RoleEmployee, model.RoleAdmin), h.CreateRequest)
		requests.GET("/:id", anyRole, h.GetRequest)
		requests.GET("/:id/history", anyRole, h.GetHistory)

		requests.POST("/:id/submit", middleware.RequireRole(model.RoleEmployee, model.RoleAdmin), h.Submit)
		requests.POST("/:id/verify", middleware.RequireRole(model.RolePurchasing), h.Verify)
		requests.POST("/:id/approve", middleware.RequireRole(model.RolePurchasingManager), h.Approve)
		requests.POST("/:id/reject", middleware.RequireRole(model.RolePurchasing, model.RolePurchasingManager), h.Reject)
		requests.POST("/:id/procure", middleware.RequireRole(model.RolePurchasing), h.Procure)
		requests.POST("/:id/receive", middleware.RequireRole(model.RoleWarehouse), h.Receive)
		requests.POST("/:id/complete", middleware.RequireRole(model.RoleWarehouse), h.Complete)
		requests.POST("/:id/cancel", middleware.RequireRole(model.RoleEmployee, model.RoleAdmin), h.Cancel)
	}
}

// CreateRequest handles POST /requests
// @Summary      Create a purchase request
// @Description  Creates a new request in DRAFT with at least one item
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=model.Request}
// @Failure      400      {object}  response.Response
// @Router       /requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var dto service.CreateRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Create(c.Request.Context(), actor, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, request))
}

// ListRequests handles GET /requests with filters and pagination
// @Summary      List purchase requests
// @Description  Employees see only their own requests; other roles see all
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        page       query  int     false  "Page number"
// @Param        limit      query  int     false  "Items per page"
// @Param        status     query  string  false  "Filter by status"
// @Param        priority   query  int     false  "Filter by priority"
// @Param        search     query  string  false  "Search title or request number"
// @Success      200  {object}  response.Response{data=[]model.Request}
// @Router       /requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	priority, _ := strconv.Atoi(c.DefaultQuery("priority", "0"))
	filter := repository.RequestFilter{
		Status:       c.Query("status"),
		Search:       c.Query("search"),
		DepartmentID: c.Query("department_id"),
		Priority:     priority,
		Page:         params.Page,
		Limit:        params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, requests, params.Page, params.Limit, total))
}

// GetRequest handles GET /requests/:id
// @Summary      Get request detail
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.Request}
// @Failure      404  {object}  response.Response
// @Router       /requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	request, err := h.requestService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// GetHistory handles GET /requests/:id/history
// @Summary      Get request audit trail
// @Description  Returns status change records newest first
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]model.StatusHistory}
// @Router       /requests/{id}/history [get]
func (h *RequestHandler) GetHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := h.requestService.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// Submit handles POST /requests/:id/submit
// @Summary      Submit a draft request
// @Description  Moves DRAFT to SUBMITTED and opens the verification step
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string          true  "Request ID"
// @Param        payload  body      versionPayload  true  "Observed version"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/submit [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var payload versionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Submit(c.Request.Context(), id, actor, payload.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Verify handles POST /requests/:id/verify
// @Summary      Verify a submitted request
// @Description  Records the step-1 decision and moves SUBMITTED to VERIFIED
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.VerifyRequestDTO  true  "Verify Payload"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/verify [post]
func (h *RequestHandler) Verify(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var dto service.VerifyRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Verify(c.Request.Context(), id, actor, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Approve handles POST /requests/:id/approve
// @Summary      Approve a verified request
// @Description  Records the step-2 decision; stock availability decides READY or IN_PROCUREMENT
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.ApproveRequestDTO  true  "Approve Payload"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var dto service.ApproveRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Approve(c.Request.Context(), id, actor, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Reject handles POST /requests/:id/reject
// @Summary      Reject a request
// @Description  Rejects from SUBMITTED or VERIFIED with a mandatory reason
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.RejectRequestDTO  true  "Reject Payload"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var dto service.RejectRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Reject(c.Request.Context(), id, actor, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Procure handles POST /requests/:id/procure
// @Summary      Raise a procurement order
// @Description  Creates a vendor PO for an APPROVED or IN_PROCUREMENT request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.ProcureRequestDTO  true  "Procure Payload"
// @Success      201      {object}  response.Response{data=model.ProcurementOrder}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/procure [post]
func (h *RequestHandler) Procure(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var dto service.ProcureRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.requestService.Procure(c.Request.Context(), id, actor, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// Receive handles POST /requests/:id/receive
// @Summary      Mark procured goods as received
// @Description  Moves IN_PROCUREMENT to READY
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string          true  "Request ID"
// @Param        payload  body      versionPayload  true  "Observed version"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/receive [post]
func (h *RequestHandler) Receive(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var payload versionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Receive(c.Request.Context(), id, actor, payload.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Complete handles POST /requests/:id/complete
// @Summary      Complete a request
// @Description  Moves READY to COMPLETED once goods are handed over
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string          true  "Request ID"
// @Param        payload  body      versionPayload  true  "Observed version"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/complete [post]
func (h *RequestHandler) Complete(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var payload versionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Complete(c.Request.Context(), id, actor, payload.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// Cancel handles POST /requests/:id/cancel
// @Summary      Cancel a request
// @Description  Moves DRAFT or SUBMITTED to CANCELLED and soft-deletes the request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true  "Request ID"
// @Param        payload  body      cancelPayload  true  "Cancel Payload"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var payload cancelPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.requestService.Cancel(c.Request.Context(), id, actor, payload.Version, payload.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}
