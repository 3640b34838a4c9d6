package tables

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
)

const defaultSuggestions = 8

// Menu Handlers

// ListMenu searches the catalog with the filters of the query string.
// ?popular=N lists the N most popular dishes instead.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenu")
	defer finish()

	c := h.catalog.Current()
	q := r.URL.Query()

	if raw := q.Get("popular"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid popular parameter")
			return
		}
		apt.RespondSuccess(w, nonNil(c.Popular(limit)))
		return
	}

	apt.RespondSuccess(w, nonNil(c.Search(catalog.FilterFromQuery(q))))
}

func (h *Handler) GetDish(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetDish")
	defer finish()

	id := chi.URLParam(r, "id")
	d, ok := h.catalog.Current().Dish(id)
	if !ok {
		h.respondErr(w, h.log(r), fmt.Errorf("%w: %s", ErrDishNotFound, id))
		return
	}
	apt.RespondSuccess(w, d)
}

func (h *Handler) SuggestIngredients(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SuggestIngredients")
	defer finish()

	limit := defaultSuggestions
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apt.RespondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = n
	}

	out := h.catalog.Current().SuggestIngredients(r.URL.Query().Get("prefix"), limit)
	if out == nil {
		out = []string{}
	}
	apt.RespondSuccess(w, out)
}

func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListIngredients")
	defer finish()

	out := h.catalog.Current().Ingredients()
	if out == nil {
		out = []string{}
	}
	apt.RespondSuccess(w, out)
}

// ListRushSelections serves the rush menu. ?max_prep defaults to the long
// window.
func (h *Handler) ListRushSelections(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListRushSelections")
	defer finish()

	maxPrep := catalog.RushWindowLong
	if raw := r.URL.Query().Get("max_prep"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apt.RespondError(w, http.StatusBadRequest, "Invalid max_prep parameter")
			return
		}
		maxPrep = n
	}
	apt.RespondSuccess(w, h.catalog.Current().RushSelections(maxPrep))
}

func (h *Handler) ListMenuRewards(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenuRewards")
	defer finish()

	c := h.catalog.Current()
	raw := r.URL.Query().Get("stars")
	if raw == "" {
		apt.RespondSuccess(w, c.Rewards())
		return
	}

	stars, err := strconv.Atoi(raw)
	if err != nil || stars < 0 {
		apt.RespondError(w, http.StatusBadRequest, "Invalid stars parameter")
		return
	}
	out := c.AffordableRewards(stars)
	if out == nil {
		out = []catalog.Reward{}
	}
	apt.RespondSuccess(w, out)
}

type reloadResult struct {
	Source   string    `json:"source"`
	Dishes   int       `json:"dishes"`
	LoadedAt time.Time `json:"loaded_at"`
	Warning  string    `json:"warning,omitempty"`
}

// ReloadMenu reloads the catalog. A fallback to the built-in menu is reported
// as a warning, not a failure.
func (h *Handler) ReloadMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReloadMenu")
	defer finish()

	log := h.log(r)

	err := h.catalog.Reload(r.Context())
	var loadErr *catalog.LoadError
	if err != nil && !errors.As(err, &loadErr) {
		log.Error("cannot reload catalog", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not reload menu")
		return
	}

	c := h.catalog.Current()
	res := reloadResult{Source: c.Source(), Dishes: c.Len(), LoadedAt: c.LoadedAt()}
	if loadErr != nil {
		res.Warning = loadErr.Error()
	}
	apt.RespondSuccess(w, res)
}

// SeedMenu pushes the built-in menu to the menu service.
func (h *Handler) SeedMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SeedMenu")
	defer finish()

	log := h.log(r)

	if h.menuSink == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Menu service not configured")
		return
	}

	fb, err := catalog.Fallback()
	if err != nil {
		log.Error("cannot read built-in menu", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not read built-in menu")
		return
	}

	res, err := catalog.Seed(r.Context(), h.menuSink, fb.All(), log)
	if err != nil {
		log.Error("cannot seed menu", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not seed menu")
		return
	}
	apt.RespondSuccess(w, res)
}

// Rush Handlers

type rushView struct {
	rush.Status
	AccumulatedMinutes int `json:"accumulatedMinutes"`
}

func (h *Handler) GetRushStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetRushStatus")
	defer finish()

	log := h.log(r)

	if h.monitor == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Rush monitor not configured")
		return
	}

	st, ok := h.monitor.Current()
	if !ok {
		var err error
		st, err = h.monitor.PollNow(r.Context())
		if err != nil {
			log.Info("rush status unavailable", "error", err)
			apt.RespondError(w, http.StatusServiceUnavailable, "Rush status unavailable")
			return
		}
	}
	apt.RespondSuccess(w, h.rushView(st))
}

// ResetRush zeroes the local accumulator, refreshes the status and asks the
// other instances to do the same.
func (h *Handler) ResetRush(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ResetRush")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	var req RushResetRequest
	if !h.decodePayload(w, r, log, &req, true) {
		return
	}

	if h.accumulator == nil {
		apt.RespondError(w, http.StatusServiceUnavailable, "Prep time accumulator not configured")
		return
	}

	before := h.accumulator.Value()
	h.accumulator.Reset()
	log.Info("prep time accumulator reset", "operator", req.Operator, "reason", req.Reason, "previous_minutes", before)

	cmd := pkg.RushResetCommand{
		EventType:  pkg.EventRushResetRequested,
		Operator:   req.Operator,
		Reason:     req.Reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := pkg.PublishJSON(ctx, h.publisher, pkg.RushResetTopic, cmd); err != nil {
		log.Error("cannot publish rush reset", "error", err)
	}

	var st rush.Status
	if h.monitor != nil {
		polled, err := h.monitor.PollNow(ctx)
		if err != nil {
			log.Info("rush status not refreshed after reset", "error", err)
		} else {
			st = polled
		}
	}
	apt.RespondSuccess(w, h.rushView(st))
}

func (h *Handler) rushView(st rush.Status) rushView {
	v := rushView{Status: st}
	if h.accumulator != nil {
		v.AccumulatedMinutes = h.accumulator.Value()
	}
	return v
}

func nonNil(dishes []catalog.Dish) []catalog.Dish {
	if dishes == nil {
		return []catalog.Dish{}
	}
	return dishes
}
