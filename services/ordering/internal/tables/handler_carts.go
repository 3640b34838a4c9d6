package tables

import (
	"fmt"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/order"
	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

// Cart Handlers

func (h *Handler) GetSeatCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSeatCart")
	defer finish()

	_, c, ok := h.seatCart(w, r, h.log(r))
	if !ok {
		return
	}
	apt.RespondSuccess(w, ViewOf(c, h.inFlight(c)))
}

func (h *Handler) AddSeatItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddSeatItem")
	defer finish()

	log := h.log(r)

	_, c, ok := h.seatCart(w, r, log)
	if !ok {
		return
	}

	var req AddItemRequest
	if !h.decodePayload(w, r, log, &req, false) {
		return
	}

	if req.DishID == "" {
		h.respondErr(w, log, &session.ValidationError{Field: "dish_id", Message: "dish_id is required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	d, found := h.catalog.Current().Dish(req.DishID)
	if !found {
		h.respondErr(w, log, fmt.Errorf("%w: %s", ErrDishNotFound, req.DishID))
		return
	}

	c.AddItem(d, req.Quantity)
	apt.RespondSuccess(w, ViewOf(c, h.inFlight(c)))
}

func (h *Handler) UpdateSeatItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateSeatItem")
	defer finish()

	log := h.log(r)

	_, c, ok := h.seatCart(w, r, log)
	if !ok {
		return
	}
	h.updateItem(w, r, log, c)
}

func (h *Handler) RemoveSeatItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveSeatItem")
	defer finish()

	_, c, ok := h.seatCart(w, r, h.log(r))
	if !ok {
		return
	}
	h.removeItem(w, r, c)
}

type shareResult struct {
	Moved  int      `json:"moved"`
	Seat   CartView `json:"seat"`
	Shared CartView `json:"shared"`
}

// ShareSeatCart moves every line of a personal cart into the shared cart.
func (h *Handler) ShareSeatCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ShareSeatCart")
	defer finish()

	log := h.log(r)

	s, c, ok := h.seatCart(w, r, log)
	if !ok {
		return
	}

	var moved int
	share := func() { moved = c.SendTo(s.Shared()) }
	if h.aggregator != nil {
		if err := h.aggregator.Exclusive(c, share); err != nil {
			h.respondErr(w, log, err)
			return
		}
	} else {
		share()
	}
	log.Debug("seat cart shared", "table", s.TableNumber, "seat", c.Seat(), "units", moved)

	apt.RespondSuccess(w, shareResult{
		Moved:  moved,
		Seat:   ViewOf(c, false),
		Shared: ViewOf(s.Shared(), h.inFlight(s.Shared())),
	})
}

func (h *Handler) PaySeatCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PaySeatCart")
	defer finish()

	log := h.log(r)

	s, c, ok := h.seatCart(w, r, log)
	if !ok {
		return
	}

	var req PayRequest
	if !h.decodePayload(w, r, log, &req, true) {
		return
	}

	meta := order.Metadata{
		Scope:          order.ScopeIndividual,
		Seat:           c.Seat(),
		CustomersCount: 1,
		UserMode:       string(s.Controller.State().UserMode),
		DeviceType:     req.DeviceType,
	}
	h.pay(w, r, log, s, c, meta)
}

func (h *Handler) GetSharedCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSharedCart")
	defer finish()

	s, ok := h.tableSession(w, r, h.log(r))
	if !ok {
		return
	}
	apt.RespondSuccess(w, ViewOf(s.Shared(), h.inFlight(s.Shared())))
}

func (h *Handler) UpdateSharedItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateSharedItem")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}
	h.updateItem(w, r, log, s.Shared())
}

func (h *Handler) RemoveSharedItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveSharedItem")
	defer finish()

	s, ok := h.tableSession(w, r, h.log(r))
	if !ok {
		return
	}
	h.removeItem(w, r, s.Shared())
}

// PaySharedCart submits the shared cart for the whole table. The customer
// count defaults to the number of seats.
func (h *Handler) PaySharedCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PaySharedCart")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}

	var req PayRequest
	if !h.decodePayload(w, r, log, &req, true) {
		return
	}

	customers := req.CustomersCount
	if customers <= 0 {
		customers = s.SeatCount()
	}

	meta := order.Metadata{
		Scope:          order.ScopeShared,
		CustomersCount: customers,
		UserMode:       string(s.Controller.State().UserMode),
		DeviceType:     req.DeviceType,
	}
	h.pay(w, r, log, s, s.Shared(), meta)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request, log apt.Logger, s *Session, c *cart.Cart, meta order.Metadata) {
	if h.aggregator == nil {
		h.respondErr(w, log, order.ErrNoSubmitter)
		return
	}

	receipt, err := h.aggregator.Submit(r.Context(), order.Request{
		Cart:        c,
		TableNumber: s.TableNumber,
		Meta:        meta,
		Checkout:    s.Controller,
	})
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	if h.live != nil {
		h.live.OrderAccepted(receipt)
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, receipt)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request, log apt.Logger, c *cart.Cart) {
	var req UpdateItemRequest
	if !h.decodePayload(w, r, log, &req, false) {
		return
	}
	if req.Quantity == nil {
		h.respondErr(w, log, &session.ValidationError{Field: "quantity", Message: "quantity is required"})
		return
	}

	c.SetQuantity(chi.URLParam(r, "dishID"), *req.Quantity)
	apt.RespondSuccess(w, ViewOf(c, h.inFlight(c)))
}

// removeItem drops a dish line, or a reward line with ?kind=reward.
func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request, c *cart.Cart) {
	id := chi.URLParam(r, "dishID")
	if r.URL.Query().Get("kind") == string(cart.LineReward) {
		c.RemoveReward(id)
	} else {
		c.RemoveItem(id)
	}
	apt.RespondSuccess(w, ViewOf(c, h.inFlight(c)))
}

func (h *Handler) seatCart(w http.ResponseWriter, r *http.Request, log apt.Logger) (*Session, *cart.Cart, bool) {
	s, ok := h.tableSession(w, r, log)
	if !ok {
		return nil, nil, false
	}

	n, err := seatParam(chi.URLParam(r, "seat"))
	if err == nil {
		var c *cart.Cart
		c, err = s.Seat(n)
		if err == nil {
			return s, c, true
		}
	}
	h.respondErr(w, log, err)
	return nil, nil, false
}
