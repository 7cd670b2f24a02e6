package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guildops/ticket-engine/internal/api/http/handlers"
	"github.com/guildops/ticket-engine/internal/auth"
	"github.com/guildops/ticket-engine/internal/domain"
	"github.com/guildops/ticket-engine/internal/events"
	"github.com/guildops/ticket-engine/internal/locking"
	"github.com/guildops/ticket-engine/internal/observability"
	"github.com/guildops/ticket-engine/internal/repository"
	"github.com/guildops/ticket-engine/internal/service"
)

const testAdminKey = "admin-key"

type apiFixture struct {
	app         *fiber.App
	tokens      *auth.TokenManager
	store       *repository.MemoryStore
	departments repository.DepartmentRepository
	engine      *service.TicketService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	tickets := store.Tickets()
	departments := store.Departments()
	dispatcher := events.NewInMemoryDispatcher()

	engine := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     tickets,
		DepartmentRepo: departments,
		Locker:         locking.NewMemoryLocker(),
		Dispatcher:     dispatcher,
	})
	departmentService := service.NewDepartmentService(departments)
	ratingService := service.NewRatingService(tickets, departments, engine, dispatcher)
	statsService := service.NewStatsService(tickets)

	tokens := auth.NewTokenManager("test-secret", 30)
	adminHash, err := auth.HashAdminKey(testAdminKey, 4)
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "test", nil, nil),
		Tickets:        handlers.NewTicketsHandler(engine, ratingService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		Stats:          handlers.NewStatsHandler(statsService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		AdminKeyHash:   adminHash,
	})

	return &apiFixture{
		app:         app,
		tokens:      tokens,
		store:       store,
		departments: departments,
		engine:      engine,
	}
}

func (fx *apiFixture) seedDepartment(t *testing.T) *domain.Department {
	t.Helper()
	dept := &domain.Department{
		ID:                     uuid.NewString(),
		GuildID:                "guild-1",
		Name:                   "support",
		MaxTicketsPerRequester: 5,
		RatingEnabled:          true,
	}
	require.NoError(t, fx.departments.Create(context.Background(), dept))
	return dept
}

func (fx *apiFixture) userToken(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := fx.tokens.GenerateToken(userID, "guild-1", domain.SubjectTypeUser, false)
	require.NoError(t, err)
	return token
}

func (fx *apiFixture) staffToken(t *testing.T, staffID string) string {
	t.Helper()
	token, _, err := fx.tokens.GenerateToken(staffID, "guild-1", domain.SubjectTypeStaff, true)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body any, headers map[string]string) *stdhttp.Response {
	t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}
	req, err := stdhttp.NewRequest(method, path, payload)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *stdhttp.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	fx := newAPIFixture(t)

	resp := doRequest(t, fx.app, stdhttp.MethodGet, "/health/live", "", nil, nil)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	resp = doRequest(t, fx.app, stdhttp.MethodGet, "/health/ready", "", nil, nil)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
}

func TestTicketsRequireAuth(t *testing.T) {
	fx := newAPIFixture(t)

	resp := doRequest(t, fx.app, stdhttp.MethodGet, "/tickets", "", nil, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp))
}

func TestCreateAndFetchTicketOverHTTP(t *testing.T) {
	fx := newAPIFixture(t)
	dept := fx.seedDepartment(t)
	token := fx.userToken(t, "user-1")

	resp := doRequest(t, fx.app, stdhttp.MethodPost, "/tickets", token, fiber.Map{
		"department_id": dept.ID,
		"title":         "cannot log in",
	}, nil)
	require.Equal(t, stdhttp.StatusCreated, resp.StatusCode)

	var created struct {
		Data struct {
			ID     string `json:"id"`
			Number int64  `json:"number"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, int64(1), created.Data.Number)
	assert.Equal(t, "OPEN", created.Data.Status)

	resp = doRequest(t, fx.app, stdhttp.MethodGet, fmt.Sprintf("/tickets/%d", created.Data.Number), token, nil, nil)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	// Another requester cannot read it.
	resp = doRequest(t, fx.app, stdhttp.MethodGet, fmt.Sprintf("/tickets/%d", created.Data.Number), fx.userToken(t, "user-2"), nil, nil)
	assert.Equal(t, stdhttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NOT_AUTHORIZED", decodeError(t, resp))
}

func TestClaimRequiresStaff(t *testing.T) {
	fx := newAPIFixture(t)
	dept := fx.seedDepartment(t)
	userToken := fx.userToken(t, "user-1")

	resp := doRequest(t, fx.app, stdhttp.MethodPost, "/tickets", userToken, fiber.Map{
		"department_id": dept.ID,
		"title":         "help",
	}, nil)
	require.Equal(t, stdhttp.StatusCreated, resp.StatusCode)
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = doRequest(t, fx.app, stdhttp.MethodPost, "/tickets/"+created.Data.ID+"/claim", userToken, nil, nil)
	assert.Equal(t, stdhttp.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, fx.app, stdhttp.MethodPost, "/tickets/"+created.Data.ID+"/claim", fx.staffToken(t, "responder-1"), nil, nil)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
}

func TestDepartmentRoutesGuardedByAdminKey(t *testing.T) {
	fx := newAPIFixture(t)
	payload := fiber.Map{"guild_id": "guild-1", "name": "support"}

	resp := doRequest(t, fx.app, stdhttp.MethodPost, "/departments", "", payload, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, fx.app, stdhttp.MethodPost, "/departments", "", payload, map[string]string{"X-Admin-Key": "wrong"})
	assert.Equal(t, stdhttp.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, fx.app, stdhttp.MethodPost, "/departments", "", payload, map[string]string{"X-Admin-Key": testAdminKey})
	assert.Equal(t, stdhttp.StatusCreated, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	dept := fx.seedDepartment(t)
	token := fx.userToken(t, "user-1")

	resp := doRequest(t, fx.app, stdhttp.MethodPost, "/tickets", token, fiber.Map{
		"department_id": dept.ID,
		"title":         "help",
	}, nil)
	require.Equal(t, stdhttp.StatusCreated, resp.StatusCode)

	resp = doRequest(t, fx.app, stdhttp.MethodGet, "/stats/guild", token, nil, nil)
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	var stats struct {
		Data struct {
			TotalTickets  int64 `json:"total_tickets"`
			ActiveTickets int64 `json:"active_tickets"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.Data.TotalTickets)
	assert.Equal(t, int64(1), stats.Data.ActiveTickets)
}

func TestValidationErrorShape(t *testing.T) {
	fx := newAPIFixture(t)
	token := fx.userToken(t, "user-1")

	resp := doRequest(t, fx.app, stdhttp.MethodPost, "/tickets", token, fiber.Map{"title": "no department"}, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp))
}
