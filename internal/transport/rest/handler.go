// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/service"
	"github.com/abgdnv/catalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errTrailingData = errors.New("unexpected data after JSON body")

const (
	msgNoProducts       = "No products found."
	msgCreateFields     = "Please, provide all fields"
	msgUpdateFields     = "Please, provide all fields (name, price, image) for update."
	msgInvalidBody      = "Invalid request body"
	msgNotFound         = "Product not found."
	msgInvalidID        = "Invalid product ID format."
	msgDuplicateName    = "Product with this name already exists."
	msgUpdated          = "Product updated successfully."
	msgDeleted          = "Product deleted successfully."
	msgServerError      = "Server Error"
	msgStoreUnavailable = "Store unavailable"
)

type Handler struct {
	service         service.ProductService
	validate        *validator.Validate
	logger          *slog.Logger
	hideErrorDetail bool
}

// NewHandler creates a new product Handler.
// With hideErrorDetail set, 500 responses carry only "Server Error"; the detail is logged either way.
func NewHandler(service service.ProductService, logger *slog.Logger, hideErrorDetail bool) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		service:         service,
		validate:        v,
		logger:          logger.With("component", "rest"),
		hideErrorDetail: hideErrorDetail,
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", h.Update)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadinessCheck)
}

// FindAll lists every product. An empty catalog is reported as 404.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.FindAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error fetching products", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, h.serverError(err))
		return
	}
	if len(list) == 0 {
		web.RespondError(w, h.logger, http.StatusNotFound, msgNoProducts)
		return
	}
	h.logger.DebugContext(ctx, "Successfully retrieved product list", "count", len(list))
	web.RespondList(w, h.logger, http.StatusOK, list)
}

// Create handles the creation of a new product.
// Every store failure, a duplicate name included, is answered with 500.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	input, ok := h.decodeInput(w, r, msgCreateFields)
	if !ok {
		return
	}

	created, err := h.service.Create(ctx, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error in create product", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, h.serverError(err))
		return
	}
	h.logger.InfoContext(ctx, "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondData(w, h.logger, http.StatusCreated, "", created)
}

// Update replaces name, price and image of a product. Serves both PUT and PATCH.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	input, ok := h.decodeInput(w, r, msgUpdateFields)
	if !ok {
		return
	}

	updated, err := h.service.Replace(ctx, id, input)
	if err != nil {
		h.respondStoreError(w, r, "Error updating product", id, err)
		return
	}
	h.logger.InfoContext(ctx, "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondData(w, h.logger, http.StatusOK, msgUpdated, updated)
}

// Delete removes a product and returns its state at deletion time.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	removed, err := h.service.Delete(ctx, id)
	if err != nil {
		h.respondStoreError(w, r, "Error deleting product", id, err)
		return
	}
	h.logger.InfoContext(ctx, "Product deleted successfully", "ID", removed.ID, "Name", removed.Name)
	web.RespondData(w, h.logger, http.StatusOK, msgDeleted, removed)
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, web.Envelope{Success: true, Message: "ok"})
}

// ReadinessCheck reports whether the store answers a ping.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		web.RespondError(w, h.logger, http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, web.Envelope{Success: true, Message: "ready"})
}

// decodeInput reads and validates the request body. On failure it writes the 400 response and returns false.
// An empty body is treated as a body with every field missing. Field level failures are logged, not returned.
func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request, missingMsg string) (service.ProductInput, bool) {
	ctx := r.Context()
	var input service.ProductInput
	if err := decodeSingleJSON(r.Body, &input); err != nil {
		h.logger.WarnContext(ctx, "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, msgInvalidBody)
		return input, false
	}

	if err := h.validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string, len(validationErrors))
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			h.logger.WarnContext(ctx, "Validation errors occurred", "errors", errorResponse)
			web.RespondError(w, h.logger, http.StatusBadRequest, missingMsg)
			return input, false
		}
		h.logger.ErrorContext(ctx, "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, msgInvalidBody)
		return input, false
	}
	return input, true
}

// decodeSingleJSON decodes exactly one JSON value from body into v. An empty body leaves v untouched.
func decodeSingleJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// respondStoreError maps the store error classification of update and delete to a response.
func (h *Handler) respondStoreError(w http.ResponseWriter, r *http.Request, logMsg, id string, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, perrors.ErrProductNotFound):
		h.logger.WarnContext(ctx, "Product not found", "ID", id)
		web.RespondError(w, h.logger, http.StatusNotFound, msgNotFound)
	case errors.Is(err, perrors.ErrInvalidID):
		h.logger.WarnContext(ctx, "Invalid product ID", "ID", id)
		web.RespondError(w, h.logger, http.StatusBadRequest, msgInvalidID)
	case errors.Is(err, perrors.ErrDuplicateName):
		h.logger.WarnContext(ctx, "Duplicate product name", "ID", id)
		web.RespondError(w, h.logger, http.StatusConflict, msgDuplicateName)
	default:
		h.logger.ErrorContext(ctx, logMsg, "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, h.serverError(err))
	}
}

func (h *Handler) serverError(err error) string {
	if h.hideErrorDetail {
		return msgServerError
	}
	return msgServerError + ": " + err.Error()
}
