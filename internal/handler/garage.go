package handler

import (
	"math"
	"net/http"
	"strconv"

	"wot-clan-dashboard/internal/middleware"
	"wot-clan-dashboard/internal/model"
	"wot-clan-dashboard/internal/repository"
	"wot-clan-dashboard/internal/service"
	"wot-clan-dashboard/pkg/apierror"
	"wot-clan-dashboard/pkg/response"
)

const (
	defaultPerPage = 25
	maxPerPage     = 200
)

// GarageHandler serves the filterable, paginated garage report.
type GarageHandler struct {
	garage  repository.GarageRepository
	players repository.PlayerRepository
	sync    *service.SyncService
}

// NewGarageHandler creates a new garage handler.
func NewGarageHandler(garage repository.GarageRepository, players repository.PlayerRepository, sync *service.SyncService) *GarageHandler {
	return &GarageHandler{
		garage:  garage,
		players: players,
		sync:    sync,
	}
}

// List handles GET /api/v1/garage. Query parameters are parsed tolerantly:
// unparseable filters are ignored rather than rejected.
func (h *GarageHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	q := r.URL.Query()
	page := atoiOr(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage := atoiOr(q.Get("per_page"), defaultPerPage)
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	filter := model.GarageFilter{
		Tier:   atoiOr(q.Get("tier"), 0),
		Nation: q.Get("nation"),
		Type:   q.Get("type"),
	}

	// Members only see their own garage; commanders may filter by player.
	if user.IsCommander() {
		filter.AccountID = int64(atoiOr(q.Get("player_id"), 0))
	} else {
		filter.AccountID = user.AccountID
	}

	ctx := r.Context()
	total, err := h.garage.Count(ctx, filter)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to count garage rows"))
		return
	}

	stats, err := h.garage.Aggregate(ctx, filter)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to aggregate garage rows"))
		return
	}

	offset := (page - 1) * perPage
	rows, err := h.garage.List(ctx, filter, perPage, offset)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list garage rows"))
		return
	}
	if rows == nil {
		rows = []model.GarageRow{}
	}

	totalPages := 1
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}

	response.JSONWithMeta(w, http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"stats": stats,
	}, response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Filters handles GET /api/v1/garage/filters: the dropdown values for the
// report. When the garage table has nothing yet, the metadata cache fills in.
func (h *GarageHandler) Filters(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	ctx := r.Context()
	nations, err := h.garage.DistinctNations(ctx)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to load nations"))
		return
	}
	types, err := h.garage.DistinctTypes(ctx)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to load types"))
		return
	}

	if len(nations) == 0 || len(types) == 0 {
		cacheNations, cacheTypes := h.sync.CachedFilterOptions()
		if len(nations) == 0 {
			nations = cacheNations
		}
		if len(types) == 0 {
			types = cacheTypes
		}
	}

	var players []model.Player
	if user.IsCommander() {
		players, err = h.players.List(ctx)
		if err != nil {
			response.Error(w, apierror.InternalError("failed to load players"))
			return
		}
	}

	response.OK(w, map[string]interface{}{
		"nations": nations,
		"types":   types,
		"players": players,
		"tiers":   []int{6, 8, 10},
	})
}

// atoiOr parses s, falling back to def on empty or invalid input.
func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
