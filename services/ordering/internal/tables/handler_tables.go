package tables

import (
	"context"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/services/ordering/internal/cart"
	"github.com/appetiteclub/tableside/services/ordering/internal/order"
	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

// Table Handlers

func (h *Handler) OpenTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenTable")
	defer finish()

	log := h.log(r)

	var req OpenTableRequest
	if !h.decodePayload(w, r, log, &req, false) {
		return
	}

	n, err := session.ParseTableNumber(req.TableNumber.String())
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	s, created, err := h.registry.Open(n)
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	if created {
		if h.live != nil {
			s.Controller.OnChange(h.live.ScreenChanged)
		}
		h.publishSession(r.Context(), pkg.EventTableSessionOpened, s)
		w.WriteHeader(http.StatusCreated)
	}
	apt.RespondSuccess(w, h.view(s))
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	sessions := h.registry.List()
	views := make([]View, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, h.view(s))
	}
	apt.RespondCollection(w, views, "table")
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTable")
	defer finish()

	s, ok := h.tableSession(w, r, h.log(r))
	if !ok {
		return
	}
	apt.RespondSuccess(w, h.view(s))
}

func (h *Handler) CloseTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseTable")
	defer finish()

	log := h.log(r)

	n, err := tableParam(chi.URLParam(r, "table"))
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	s, err := h.registry.Close(n)
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	h.publishSession(r.Context(), pkg.EventTableSessionClosed, s)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChooseMode(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ChooseMode")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}

	var req ChooseModeRequest
	if !h.decodePayload(w, r, log, &req, false) {
		return
	}

	h.transition(w, log, s, func() error {
		return s.Controller.ChooseMode(session.UserMode(req.Mode))
	})
}

// EnterRush opens the rush menu when the kitchen is in rush mode.
func (h *Handler) EnterRush(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.EnterRush")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}

	active := h.rushActive(r.Context(), log)
	h.transition(w, log, s, func() error {
		return s.Controller.EnterRush(active)
	})
}

func (h *Handler) LeaveRush(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.LeaveRush")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}
	h.transition(w, log, s, s.Controller.LeaveRush)
}

func (h *Handler) OpenCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenCart")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}
	h.transition(w, log, s, s.Controller.OpenCart)
}

func (h *Handler) CloseCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseCart")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}
	h.transition(w, log, s, s.Controller.CloseCart)
}

// ResetMode goes back to mode selection. Carts are kept.
func (h *Handler) ResetMode(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ResetMode")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}
	h.transition(w, log, s, s.Controller.Reset)
}

func (h *Handler) DismissConfirmation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DismissConfirmation")
	defer finish()

	log := h.log(r)

	s, ok := h.tableSession(w, r, log)
	if !ok {
		return
	}
	h.transition(w, log, s, s.Controller.DismissConfirmation)
}

type tableOrders struct {
	TableNumber int                `json:"table_number"`
	Receipts    []order.Receipt    `json:"receipts"`
	Dining      []order.TableOrder `json:"dining,omitempty"`
}

// ListTableOrders returns the receipts of the table and, when the dining
// service is configured, the orders it holds for the table.
func (h *Handler) ListTableOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTableOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	n, err := tableParam(chi.URLParam(r, "table"))
	if err == nil {
		err = session.ValidateTableNumber(n)
	}
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	res := tableOrders{TableNumber: n, Receipts: []order.Receipt{}}
	if h.history != nil {
		receipts, err := h.history.ListByTable(ctx, n)
		if err != nil {
			log.Error("cannot list receipts", "table", n, "error", err)
			apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
			return
		}
		if receipts != nil {
			res.Receipts = receipts
		}
	}
	res.Dining = order.TableHistory(ctx, h.dining, n, log)

	apt.RespondSuccess(w, res)
}

// transition applies a controller action and answers with the session view.
func (h *Handler) transition(w http.ResponseWriter, log apt.Logger, s *Session, apply func() error) {
	if err := apply(); err != nil {
		h.respondErr(w, log, err)
		return
	}
	apt.RespondSuccess(w, h.view(s))
}

func (h *Handler) rushActive(ctx context.Context, log apt.Logger) bool {
	if h.monitor == nil {
		return false
	}
	if st, ok := h.monitor.Current(); ok {
		return st.IsRushMode
	}
	st, err := h.monitor.PollNow(ctx)
	if err != nil {
		log.Info("rush status unavailable", "error", err)
		return false
	}
	return st.IsRushMode
}

func (h *Handler) view(s *Session) View {
	v := View{
		ID:          s.ID,
		TableNumber: s.TableNumber,
		OpenedAt:    s.OpenedAt,
		State:       s.Controller.State(),
		Shared:      ViewOf(s.Shared(), h.inFlight(s.Shared())),
	}
	for i := 1; i <= s.SeatCount(); i++ {
		c, _ := s.Seat(i)
		v.Seats = append(v.Seats, ViewOf(c, h.inFlight(c)))
	}
	return v
}

func (h *Handler) inFlight(c *cart.Cart) bool {
	return h.aggregator != nil && h.aggregator.InFlight(c)
}

func (h *Handler) publishSession(ctx context.Context, eventType string, s *Session) {
	evt := pkg.TableSessionEvent{
		EventType:   eventType,
		SessionID:   s.ID.String(),
		TableNumber: s.TableNumber,
		Seats:       s.SeatCount(),
		OccurredAt:  time.Now().UTC(),
	}
	if err := pkg.PublishJSON(ctx, h.publisher, pkg.TableSessionTopic, evt); err != nil {
		h.logger.Error("cannot publish table session event", "error", err, "table", s.TableNumber, "event_type", eventType)
	}
}
