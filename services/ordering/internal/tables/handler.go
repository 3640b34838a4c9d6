package tables

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/kids"
	"github.com/appetiteclub/tableside/services/ordering/internal/metrics"
	"github.com/appetiteclub/tableside/services/ordering/internal/order"
	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger      apt.Logger
	config      *apt.Config
	tlm         *telemetry.HTTP
	registry    *Registry
	catalog     *catalog.Store
	menuSink    catalog.MenuSink
	aggregator  *order.Aggregator
	accumulator *rush.Accumulator
	monitor     *rush.Monitor
	history     order.History
	dining      order.DiningClient
	publisher   events.Publisher
	live        *LiveHub
	metrics     *metrics.Recorder
}

type HandlerDeps struct {
	Registry    *Registry
	Catalog     *catalog.Store
	MenuSink    catalog.MenuSink
	Aggregator  *order.Aggregator
	Accumulator *rush.Accumulator
	Monitor     *rush.Monitor
	History     order.History
	Dining      order.DiningClient
	Publisher   events.Publisher
	Live        *LiveHub
	Metrics     *metrics.Recorder
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Handler{
		config:      config,
		logger:      logger,
		tlm:         telemetry.NewHTTP(),
		registry:    hd.Registry,
		catalog:     hd.Catalog,
		menuSink:    hd.MenuSink,
		aggregator:  hd.Aggregator,
		accumulator: hd.Accumulator,
		monitor:     hd.Monitor,
		history:     hd.History,
		dining:      hd.Dining,
		publisher:   hd.Publisher,
		live:        hd.Live,
		metrics:     hd.Metrics,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.Post("/", h.OpenTable)
		r.Get("/", h.ListTables)

		r.Route("/{table}", func(r chi.Router) {
			r.Get("/", h.GetTable)
			r.Delete("/", h.CloseTable)
			r.Post("/mode", h.ChooseMode)
			r.Post("/rush", h.EnterRush)
			r.Delete("/rush", h.LeaveRush)
			r.Post("/cart/open", h.OpenCart)
			r.Post("/cart/close", h.CloseCart)
			r.Post("/reset", h.ResetMode)
			r.Post("/confirmation/dismiss", h.DismissConfirmation)
			r.Get("/orders", h.ListTableOrders)

			r.Route("/seats/{seat}", func(r chi.Router) {
				r.Get("/", h.GetSeatCart)
				r.Post("/items", h.AddSeatItem)
				r.Put("/items/{dishID}", h.UpdateSeatItem)
				r.Delete("/items/{dishID}", h.RemoveSeatItem)
				r.Post("/share", h.ShareSeatCart)
				r.Post("/pay", h.PaySeatCart)

				r.Route("/kids", func(r chi.Router) {
					r.Get("/", h.GetMission)
					r.Post("/start", h.StartMission)
					r.Post("/pick", h.PickDish)
					r.Post("/skip", h.SkipCourse)
					r.Post("/back", h.StepBack)
					r.Post("/unpick", h.UnpickDish)
					r.Post("/cart", h.ReviewPlate)
					r.Post("/shop", h.OpenRewardShop)
					r.Get("/rewards", h.ListRewards)
					r.Post("/rewards", h.SelectReward)
					r.Delete("/rewards/{index}", h.RemoveReward)
					r.Post("/finalize", h.FinalizeMission)
					r.Post("/restart", h.RestartMission)
				})
			})

			r.Route("/shared", func(r chi.Router) {
				r.Get("/", h.GetSharedCart)
				r.Put("/items/{dishID}", h.UpdateSharedItem)
				r.Delete("/items/{dishID}", h.RemoveSharedItem)
				r.Post("/pay", h.PaySharedCart)
			})
		})
	})

	r.Route("/menu", func(r chi.Router) {
		r.Get("/", h.ListMenu)
		r.Get("/suggestions", h.SuggestIngredients)
		r.Get("/ingredients", h.ListIngredients)
		r.Get("/rush", h.ListRushSelections)
		r.Get("/rewards", h.ListMenuRewards)
		r.Post("/reload", h.ReloadMenu)
		r.Post("/seed", h.SeedMenu)
		r.Get("/{id}", h.GetDish)
	})

	r.Route("/rush", func(r chi.Router) {
		r.Get("/", h.GetRushStatus)
		r.Post("/reset", h.ResetRush)
	})

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}
	if h.live != nil {
		r.Handle("/live", h.live)
	}
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}

// tableSession resolves the {table} URL parameter to an open session.
func (h *Handler) tableSession(w http.ResponseWriter, r *http.Request, log apt.Logger) (*Session, bool) {
	n, err := tableParam(chi.URLParam(r, "table"))
	if err != nil {
		h.respondErr(w, log, err)
		return nil, false
	}

	s, err := h.registry.Get(n)
	if err != nil {
		h.respondErr(w, log, err)
		return nil, false
	}
	return s, true
}

func tableParam(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &session.ValidationError{Field: "table", Message: "table must be a number"}
	}
	return n, nil
}

func seatParam(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &session.ValidationError{Field: "seat", Message: "seat must be a number"}
	}
	return n, nil
}

// respondErr maps domain errors to status codes.
func (h *Handler) respondErr(w http.ResponseWriter, log apt.Logger, err error) {
	var (
		validationErr *session.ValidationError
		transitionErr *session.TransitionError
		submissionErr *order.SubmissionError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Debug("invalid request", "error", err)
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTableNotFound), errors.Is(err, ErrSeatNotFound), errors.Is(err, ErrDishNotFound):
		apt.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrSubmissionInProgress),
		errors.Is(err, session.ErrCheckoutInProgress),
		errors.Is(err, kids.ErrWrongStep),
		errors.As(err, &transitionErr):
		log.Debug("action refused", "error", err)
		apt.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, kids.ErrNotKidFriendly),
		errors.Is(err, kids.ErrWrongCourse),
		errors.Is(err, kids.ErrNotEnoughStars),
		errors.Is(err, kids.ErrNothingToFinish):
		apt.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrNoSubmitter):
		log.Error("order submitter not configured")
		apt.RespondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &submissionErr):
		log.Info("order not accepted", "order_id", submissionErr.OrderID, "error", err)
		apt.RespondError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error("request failed", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not process request")
	}
}

// decodePayload reads a JSON body into v. An empty body leaves v untouched
// when optional is true.
func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log apt.Logger, v interface{}, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if len(body) == 0 && optional {
		return true
	}

	if err := json.Unmarshal(body, v); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}
