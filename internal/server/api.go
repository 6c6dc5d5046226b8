// Package server exposes the HTTP API: ticket lifecycle endpoints that
// fire automation triggers, rule and SLA administration, and operational
// helpers.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/repository"
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
	"github.com/ticketflow-io/ticketflow/internal/services/scheduler"
	"github.com/ticketflow-io/ticketflow/internal/services/sla"
)

// API bundles the HTTP handlers and their collaborators.
type API struct {
	tickets  *repository.TicketRepository
	rules    *repository.RuleRepository
	policies *repository.SLARepository
	engine   *automation.Engine
	detector *sla.BreachDetector
	sched    *scheduler.Service
	logger   *log.Logger
	now      func() time.Time
}

// NewAPI creates the handler set.
func NewAPI(tickets *repository.TicketRepository, rules *repository.RuleRepository, policies *repository.SLARepository, engine *automation.Engine, detector *sla.BreachDetector, sched *scheduler.Service, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{
		tickets:  tickets,
		rules:    rules,
		policies: policies,
		engine:   engine,
		detector: detector,
		sched:    sched,
		logger:   logger,
		now:      time.Now,
	}
}

// Register mounts the routes on a router group.
func (a *API) Register(g *gin.RouterGroup) {
	g.POST("/tickets", a.createTicket)
	g.GET("/tickets/:id", a.getTicket)
	g.POST("/tickets/:id/status", a.changeStatus)
	g.POST("/tickets/:id/assign", a.assignTicket)
	g.GET("/tickets/:id/sla", a.ticketSLA)
	g.POST("/tickets/:id/triggers/:trigger", a.fireTrigger)

	g.POST("/rules", a.createRule)
	g.POST("/policies", a.createPolicy)
	g.POST("/calendars", a.createCalendar)

	g.POST("/ops/run-jobs", a.runJobs)
}

type createTicketRequest struct {
	Organization string                 `json:"organization" binding:"required"`
	Title        string                 `json:"title" binding:"required"`
	Priority     models.TicketPriority  `json:"priority"`
	Tags         []string               `json:"tags"`
	CustomFields map[string]interface{} `json:"custom_fields"`
}

func (a *API) createTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := a.now()
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	ticket := &models.Ticket{
		Organization: req.Organization,
		Title:        req.Title,
		Status:       models.StatusNew,
		Priority:     priority,
		Tags:         req.Tags,
		CustomFields: req.CustomFields,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.tickets.CreateTicket(c.Request.Context(), ticket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := a.engine.ExecuteRules(c.Request.Context(), models.TriggerTicketCreated, ticket, nil); err != nil {
		a.logger.Printf("server: ticket_created rules for ticket %d failed: %v", ticket.ID, err)
	}
	c.JSON(http.StatusCreated, ticket)
}

func (a *API) getTicket(c *gin.Context) {
	ticket, ok := a.loadTicket(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type changeStatusRequest struct {
	Status models.TicketStatus `json:"status" binding:"required"`
}

func (a *API) changeStatus(c *gin.Context) {
	ticket, ok := a.loadTicket(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	previous := ticket.Status
	ticket.SetStatus(req.Status, a.now())
	ticket.UpdatedAt = a.now()
	if err := a.tickets.SaveTicket(c.Request.Context(), ticket); err != nil {
		a.saveError(c, err)
		return
	}

	evalCtx := map[string]interface{}{"previous_status": string(previous)}
	if err := a.engine.ExecuteRules(c.Request.Context(), models.TriggerTicketStatusChanged, ticket, evalCtx); err != nil {
		a.logger.Printf("server: status rules for ticket %d failed: %v", ticket.ID, err)
	}
	c.JSON(http.StatusOK, ticket)
}

type assignRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
}

func (a *API) assignTicket(c *gin.Context) {
	ticket, ok := a.loadTicket(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agent, err := a.tickets.ResolveAgent(c.Request.Context(), ticket.Organization, req.AgentID)
	if err != nil {
		if errors.Is(err, automation.ErrAgentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ticket.AssignedAgent = agent.ID
	ticket.UpdatedAt = a.now()
	if err := a.tickets.SaveTicket(c.Request.Context(), ticket); err != nil {
		a.saveError(c, err)
		return
	}

	if err := a.engine.ExecuteRules(c.Request.Context(), models.TriggerTicketAssigned, ticket, nil); err != nil {
		a.logger.Printf("server: assign rules for ticket %d failed: %v", ticket.ID, err)
	}
	c.JSON(http.StatusOK, ticket)
}

func (a *API) ticketSLA(c *gin.Context) {
	ticket, ok := a.loadTicket(c)
	if !ok {
		return
	}

	response, err := a.detector.Check(c.Request.Context(), ticket, models.SLAResponse)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resolution, err := a.detector.Check(c.Request.Context(), ticket, models.SLAResolution)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": response, "resolution": resolution})
}

type fireTriggerRequest struct {
	Context map[string]interface{} `json:"context"`
}

// fireTrigger lets upstream systems report lifecycle events that happened
// outside this service.
func (a *API) fireTrigger(c *gin.Context) {
	ticket, ok := a.loadTicket(c)
	if !ok {
		return
	}
	trigger := models.TriggerType(c.Param("trigger"))
	switch trigger {
	case models.TriggerTicketCreated, models.TriggerTicketUpdated, models.TriggerTicketAssigned,
		models.TriggerTicketStatusChanged, models.TriggerWorkOrderCreated, models.TriggerWorkOrderAssigned:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trigger type"})
		return
	}

	// The context body is optional.
	var req fireTriggerRequest
	_ = c.ShouldBindJSON(&req)

	if err := a.engine.ExecuteRules(c.Request.Context(), trigger, ticket, req.Context); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type createRuleRequest struct {
	Organization   string             `json:"organization" binding:"required"`
	Name           string             `json:"name" binding:"required"`
	TriggerType    models.TriggerType `json:"trigger_type" binding:"required"`
	Conditions     []models.Condition `json:"conditions"`
	Actions        json.RawMessage    `json:"actions" binding:"required"`
	ExecutionOrder int                `json:"execution_order"`
	IsActive       *bool              `json:"is_active"`
	StopOnMatch    bool               `json:"stop_on_match"`
}

func (a *API) createRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actions, err := models.UnmarshalActions(req.Actions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := a.now()
	rule := &models.AutomationRule{
		Organization:   req.Organization,
		Name:           req.Name,
		TriggerType:    req.TriggerType,
		Conditions:     req.Conditions,
		Actions:        actions,
		ExecutionOrder: req.ExecutionOrder,
		IsActive:       req.IsActive == nil || *req.IsActive,
		StopOnMatch:    req.StopOnMatch,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.rules.CreateRule(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (a *API) createPolicy(c *gin.Context) {
	var policy models.SLAPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := a.now()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	if err := a.policies.CreatePolicy(c.Request.Context(), &policy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, policy)
}

func (a *API) createCalendar(c *gin.Context) {
	var calendar models.BusinessHoursConfig
	if err := c.ShouldBindJSON(&calendar); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := a.now()
	calendar.CreatedAt = now
	calendar.UpdatedAt = now
	if err := a.policies.CreateCalendar(c.Request.Context(), &calendar); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, calendar)
}

func (a *API) runJobs(c *gin.Context) {
	if err := a.sched.RunOnce(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func (a *API) loadTicket(c *gin.Context) (*models.Ticket, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return nil, false
	}
	ticket, err := a.tickets.GetTicket(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return ticket, true
}

func (a *API) saveError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrVersionConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "ticket was modified concurrently, retry"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
