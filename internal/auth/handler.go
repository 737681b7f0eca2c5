package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/procurehub/procurehub/internal/platform/httpx"
)

// EventRecorder counts authentication outcomes.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	events    EventRecorder
}

// NewHandler constructs a Handler instance. events may be nil.
func NewHandler(logger *slog.Logger, service *Service, events EventRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: httpx.NewValidator(),
		events:    events,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/token", h.handleLogin)
	r.With(h.RequireUser).Get("/users/me", h.handleMe)
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max_bytes=72"`
}

type loginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be a JSON object")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.record("register", outcome(err))
		h.respondError(w, err)
		return
	}
	h.record("register", "success")
	httpx.JSON(w, http.StatusCreated, user.Public())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid form body")
		return
	}
	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.ValidationProblem(w, fieldErrors(err))
		return
	}

	token, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		h.record("login", outcome(err))
		h.respondError(w, err)
		return
	}
	h.record("login", "success")
	httpx.JSON(w, http.StatusOK, token)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httpx.RespondError(w, ErrInvalidToken)
		return
	}
	httpx.JSON(w, http.StatusOK, user.Public())
}

// respondError writes a gate error. Token failures other than bad
// credentials all read as ErrInvalidToken to the client.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch StatusFor(err) {
	case http.StatusUnauthorized:
		if !errors.Is(err, ErrInvalidCredentials) {
			err = ErrInvalidToken
		}
	case http.StatusInternalServerError:
		h.logger.Error("auth request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) record(event, result string) {
	if h.events != nil {
		h.events.RecordAuthEvent(event, result)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrAccountInactive):
		return "inactive"
	default:
		return "error"
	}
}

func fieldErrors(err error) map[string]string {
	errs := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			errs[fieldErr.Field()] = fieldErr.Tag()
		}
		return errs
	}
	errs["general"] = err.Error()
	return errs
}
