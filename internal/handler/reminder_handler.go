package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nudgelab/reminder-engine/internal/domain"
)

type ReminderService interface {
	RegisterSubscription(ctx context.Context, sub *domain.Subscription) error
	RemoveSubscription(ctx context.Context, subjectID string) (int64, error)
	Schedule(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error)
	ScheduleTipSeries(ctx context.Context, subjectID, groupID string, days int, startAt time.Time) ([]domain.Reminder, error)
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	Cancel(ctx context.Context, id string) error
	ListActive(ctx context.Context, subjectID string) ([]domain.Reminder, error)
	SendTest(ctx context.Context, subjectID string) error
	TriggerKind(ctx context.Context, subjectID, groupID string, kind domain.Kind) error
	UpdatePreferences(ctx context.Context, prefs *domain.Preferences) error
	GetPreferences(ctx context.Context, subjectID string) (*domain.Preferences, error)
}

type ReminderHandler struct {
	service ReminderService
}

func NewReminderHandler(service ReminderService) (*ReminderHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("reminder service is required")
	}
	return &ReminderHandler{service: service}, nil
}

func RegisterReminderRoutes(router fiber.Router, service ReminderService) error {
	h, err := NewReminderHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Put("/subscriptions", h.RegisterSubscription)
	v1.Delete("/subscriptions/:subjectId", h.RemoveSubscription)
	v1.Post("/reminders", h.ScheduleReminder)
	v1.Get("/reminders", h.ListReminders)
	v1.Post("/reminders/series", h.ScheduleTipSeries)
	v1.Post("/reminders/test", h.SendTest)
	v1.Post("/reminders/trigger", h.TriggerKind)
	v1.Get("/reminders/:id", h.GetReminder)
	v1.Post("/reminders/:id/cancel", h.CancelReminder)
	v1.Get("/preferences/:subjectId", h.GetPreferences)
	v1.Put("/preferences/:subjectId", h.UpdatePreferences)

	return nil
}

type registerSubscriptionRequest struct {
	SubjectID string           `json:"subjectId"`
	Endpoint  string           `json:"endpoint"`
	Keys      subscriptionKeys `json:"keys"`
}

type subscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type scheduleReminderRequest struct {
	SubjectID    string    `json:"subjectId"`
	GroupID      string    `json:"groupId"`
	Kind         string    `json:"kind"`
	Message      string    `json:"message"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Recurring    bool      `json:"recurring"`
	Frequency    string    `json:"frequency,omitempty"`
}

type scheduleSeriesRequest struct {
	SubjectID string    `json:"subjectId"`
	GroupID   string    `json:"groupId"`
	Days      int       `json:"days"`
	StartAt   time.Time `json:"startAt"`
}

type triggerRequest struct {
	SubjectID string `json:"subjectId"`
	GroupID   string `json:"groupId"`
	Kind      string `json:"kind"`
}

type preferencesRequest struct {
	Enabled map[string]bool `json:"enabled"`
}

type reminderResponse struct {
	ID           string    `json:"id"`
	SubjectID    string    `json:"subjectId"`
	GroupID      string    `json:"groupId"`
	Kind         string    `json:"kind"`
	Message      string    `json:"message,omitempty"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Recurring    bool      `json:"recurring"`
	Frequency    string    `json:"frequency,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

type scheduleSeriesResponse struct {
	SubjectID string             `json:"subjectId"`
	Count     int                `json:"count"`
	Reminders []reminderResponse `json:"reminders"`
}

type listRemindersResponse struct {
	Data []reminderResponse `json:"data"`
}

type preferencesResponse struct {
	SubjectID string          `json:"subjectId"`
	Enabled   map[string]bool `json:"enabled"`
}

func (h *ReminderHandler) RegisterSubscription(c *fiber.Ctx) error {
	var req registerSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sub := domain.Subscription{
		SubjectID: strings.TrimSpace(req.SubjectID),
		Endpoint:  strings.TrimSpace(req.Endpoint),
		P256dh:    strings.TrimSpace(req.Keys.P256dh),
		Auth:      strings.TrimSpace(req.Keys.Auth),
	}
	if err := h.service.RegisterSubscription(c.UserContext(), &sub); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

func (h *ReminderHandler) RemoveSubscription(c *fiber.Ctx) error {
	subjectID := strings.TrimSpace(c.Params("subjectId"))
	cancelled, err := h.service.RemoveSubscription(c.UserContext(), subjectID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"subjectId":          subjectID,
		"cancelledReminders": cancelled,
	})
}

func (h *ReminderHandler) ScheduleReminder(c *fiber.Ctx) error {
	var req scheduleReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	reminder, err := requestToDomainReminder(req)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.service.Schedule(c.UserContext(), &reminder)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toReminderResponse(created))
}

func (h *ReminderHandler) ScheduleTipSeries(c *fiber.Ctx) error {
	var req scheduleSeriesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.ScheduleTipSeries(c.UserContext(), req.SubjectID, req.GroupID, req.Days, req.StartAt)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]reminderResponse, 0, len(created))
	for i := range created {
		responses = append(responses, toReminderResponse(&created[i]))
	}

	return c.Status(fiber.StatusCreated).JSON(scheduleSeriesResponse{
		SubjectID: strings.TrimSpace(req.SubjectID),
		Count:     len(responses),
		Reminders: responses,
	})
}

func (h *ReminderHandler) GetReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	reminder, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toReminderResponse(reminder))
}

func (h *ReminderHandler) CancelReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Cancel(c.UserContext(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"reminderId": id,
		"active":     false,
	})
}

func (h *ReminderHandler) ListReminders(c *fiber.Ctx) error {
	subjectID := strings.TrimSpace(c.Query("subjectId"))
	reminders, err := h.service.ListActive(c.UserContext(), subjectID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]reminderResponse, 0, len(reminders))
	for i := range reminders {
		responses = append(responses, toReminderResponse(&reminders[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listRemindersResponse{Data: responses})
}

func (h *ReminderHandler) SendTest(c *fiber.Ctx) error {
	var req triggerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SendTest(c.UserContext(), req.SubjectID); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"delivered": true})
}

func (h *ReminderHandler) TriggerKind(c *fiber.Ctx) error {
	var req triggerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseKindFromString(req.Kind)
	if err != nil {
		return toHTTPError(err)
	}

	if err := h.service.TriggerKind(c.UserContext(), req.SubjectID, req.GroupID, kind); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"delivered": true})
}

func (h *ReminderHandler) GetPreferences(c *fiber.Ctx) error {
	subjectID := strings.TrimSpace(c.Params("subjectId"))
	prefs, err := h.service.GetPreferences(c.UserContext(), subjectID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toPreferencesResponse(prefs))
}

func (h *ReminderHandler) UpdatePreferences(c *fiber.Ctx) error {
	subjectID := strings.TrimSpace(c.Params("subjectId"))
	var req preferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	prefs := domain.Preferences{
		SubjectID: subjectID,
		Enabled:   make(map[domain.Kind]bool, len(req.Enabled)),
	}
	for raw, enabled := range req.Enabled {
		kind, err := domain.ParseKindFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		prefs.Enabled[kind] = enabled
	}

	if err := h.service.UpdatePreferences(c.UserContext(), &prefs); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toPreferencesResponse(&prefs))
}

func requestToDomainReminder(req scheduleReminderRequest) (domain.Reminder, error) {
	kind, err := domain.ParseKindFromString(req.Kind)
	if err != nil {
		return domain.Reminder{}, err
	}

	reminder := domain.Reminder{
		SubjectID:    strings.TrimSpace(req.SubjectID),
		GroupID:      strings.TrimSpace(req.GroupID),
		Kind:         kind,
		Message:      strings.TrimSpace(req.Message),
		ScheduledFor: req.ScheduledFor,
		Recurring:    req.Recurring,
	}

	if req.Recurring {
		frequency, err := domain.ParseFrequencyFromString(req.Frequency)
		if err != nil {
			return domain.Reminder{}, err
		}
		reminder.Frequency = frequency
	}

	return reminder, nil
}

func toReminderResponse(r *domain.Reminder) reminderResponse {
	if r == nil {
		return reminderResponse{}
	}

	return reminderResponse{
		ID:           r.ID,
		SubjectID:    r.SubjectID,
		GroupID:      r.GroupID,
		Kind:         r.Kind.String(),
		Message:      r.Message,
		ScheduledFor: r.ScheduledFor,
		Recurring:    r.Recurring,
		Frequency:    r.Frequency.String(),
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toPreferencesResponse(p *domain.Preferences) preferencesResponse {
	resp := preferencesResponse{
		SubjectID: p.SubjectID,
		Enabled:   make(map[string]bool, len(domain.Kinds())),
	}
	for _, kind := range domain.Kinds() {
		resp.Enabled[kind.String()] = p.Allows(kind)
	}
	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoSubscription):
		return fiber.NewError(fiber.StatusPreconditionFailed, err.Error())
	default:
		return err
	}
}
