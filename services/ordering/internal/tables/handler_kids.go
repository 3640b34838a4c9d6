package tables

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/kids"
	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

// Child mission Handlers

type missionView struct {
	kids.Snapshot
	Choices []catalog.Dish `json:"choices"`
}

type rewardView struct {
	catalog.Reward
	Affordable bool `json:"affordable"`
}

type finalizeResult struct {
	Added   int         `json:"added"`
	Cart    CartView    `json:"cart"`
	Mission missionView `json:"mission"`
}

func (h *Handler) GetMission(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetMission")
	defer finish()

	_, m, _, ok := h.seatMission(w, r, h.log(r))
	if !ok {
		return
	}
	apt.RespondSuccess(w, h.missionView(m))
}

func (h *Handler) StartMission(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.StartMission")
	defer finish()
	h.missionStep(w, r, func(m *kids.Mission) error { return m.Start() })
}

func (h *Handler) PickDish(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PickDish")
	defer finish()

	log := h.log(r)

	_, m, _, ok := h.seatMission(w, r, log)
	if !ok {
		return
	}

	var req PickDishRequest
	if !h.decodePayload(w, r, log, &req, false) {
		return
	}

	d, found := h.catalog.Current().Dish(req.DishID)
	if !found {
		h.respondErr(w, log, fmt.Errorf("%w: %s", ErrDishNotFound, req.DishID))
		return
	}

	if err := m.Pick(d); err != nil {
		h.respondErr(w, log, err)
		return
	}
	apt.RespondSuccess(w, h.missionView(m))
}

func (h *Handler) SkipCourse(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SkipCourse")
	defer finish()
	h.missionStep(w, r, func(m *kids.Mission) error { return m.Skip() })
}

func (h *Handler) StepBack(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.StepBack")
	defer finish()
	h.missionStep(w, r, func(m *kids.Mission) error { return m.Back() })
}

func (h *Handler) UnpickDish(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UnpickDish")
	defer finish()

	log := h.log(r)

	_, m, _, ok := h.seatMission(w, r, log)
	if !ok {
		return
	}

	var req UnpickRequest
	if !h.decodePayload(w, r, log, &req, false) {
		return
	}
	if kids.StarsFor(req.Course) == 0 {
		h.respondErr(w, log, &session.ValidationError{Field: "course", Message: fmt.Sprintf("unknown course %q", req.Course)})
		return
	}

	if err := m.Unpick(req.Course); err != nil {
		h.respondErr(w, log, err)
		return
	}
	apt.RespondSuccess(w, h.missionView(m))
}

func (h *Handler) ReviewPlate(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReviewPlate")
	defer finish()
	h.missionStep(w, r, func(m *kids.Mission) error { return m.GoToCart() })
}

func (h *Handler) OpenRewardShop(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenRewardShop")
	defer finish()
	h.missionStep(w, r, func(m *kids.Mission) error { return m.GoToRewards() })
}

// ListRewards lists every reward and whether the remaining stars cover it.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListRewards")
	defer finish()

	_, m, _, ok := h.seatMission(w, r, h.log(r))
	if !ok {
		return
	}

	remaining := m.Snapshot().RemainingStars
	rewards := h.catalog.Current().Rewards()
	views := make([]rewardView, 0, len(rewards))
	for _, rw := range rewards {
		views = append(views, rewardView{Reward: rw, Affordable: rw.Stars <= remaining})
	}
	apt.RespondSuccess(w, views)
}

func (h *Handler) SelectReward(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SelectReward")
	defer finish()

	log := h.log(r)

	_, m, _, ok := h.seatMission(w, r, log)
	if !ok {
		return
	}

	var req SelectRewardRequest
	if !h.decodePayload(w, r, log, &req, false) {
		return
	}

	reward, found := h.catalog.Current().Reward(req.RewardID)
	if !found {
		h.respondErr(w, log, &session.ValidationError{Field: "reward_id", Message: fmt.Sprintf("unknown reward %q", req.RewardID)})
		return
	}

	if err := m.SelectReward(reward); err != nil {
		h.respondErr(w, log, err)
		return
	}
	apt.RespondSuccess(w, h.missionView(m))
}

func (h *Handler) RemoveReward(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveReward")
	defer finish()

	log := h.log(r)

	_, m, _, ok := h.seatMission(w, r, log)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.respondErr(w, log, &session.ValidationError{Field: "index", Message: "index must be a number"})
		return
	}

	if err := m.RemoveReward(index); err != nil {
		h.respondErr(w, log, &session.ValidationError{Field: "index", Message: err.Error()})
		return
	}
	apt.RespondSuccess(w, h.missionView(m))
}

// FinalizeMission moves the child portions and rewards into the seat cart.
func (h *Handler) FinalizeMission(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.FinalizeMission")
	defer finish()

	log := h.log(r)

	_, m, c, ok := h.seatMission(w, r, log)
	if !ok {
		return
	}

	added, err := m.Finalize(c)
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	apt.RespondSuccess(w, finalizeResult{
		Added:   added,
		Cart:    ViewOf(c, h.inFlight(c)),
		Mission: h.missionView(m),
	})
}

func (h *Handler) RestartMission(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RestartMission")
	defer finish()
	h.missionStep(w, r, func(m *kids.Mission) error {
		m.Restart()
		return nil
	})
}

func (h *Handler) missionStep(w http.ResponseWriter, r *http.Request, step func(*kids.Mission) error) {
	log := h.log(r)

	_, m, _, ok := h.seatMission(w, r, log)
	if !ok {
		return
	}
	if err := step(m); err != nil {
		h.respondErr(w, log, err)
		return
	}
	apt.RespondSuccess(w, h.missionView(m))
}

func (h *Handler) missionView(m *kids.Mission) missionView {
	return missionView{
		Snapshot: m.Snapshot(),
		Choices:  m.Choices(h.catalog.Current()),
	}
}

func (h *Handler) seatMission(w http.ResponseWriter, r *http.Request, log apt.Logger) (*Session, *kids.Mission, *cart.Cart, bool) {
	s, c, ok := h.seatCart(w, r, log)
	if !ok {
		return nil, nil, nil, false
	}
	m, err := s.Mission(c.Seat())
	if err != nil {
		h.respondErr(w, log, err)
		return nil, nil, nil, false
	}
	return s, m, c, true
}
