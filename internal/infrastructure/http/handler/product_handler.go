package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mrops-br/products-catalog-api/internal/app/dto"
	"github.com/mrops-br/products-catalog-api/internal/app/service"
	"github.com/mrops-br/products-catalog-api/internal/app/validator"
	"github.com/mrops-br/products-catalog-api/internal/domain"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/http/response"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/jsoncodec"
)

const maxBodyBytes = 1 << 20

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ProductLocation is the lookup path of a product
func ProductLocation(id uuid.UUID) string {
	return "/api/products/search/product-id/" + id.String()
}

// GetProducts handles GET /api/products
func (h *ProductHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetProducts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// GetProductByID handles GET /api/products/search/product-id/{id}
func (h *ProductHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.service.GetProductByCondition(r.Context(), domain.ByID(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if product == nil {
		response.JSON(w, http.StatusNotFound, fmt.Sprintf("Product with ID: %s not found", id))
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// SearchProducts handles GET /api/products/search/{text}. Name matches come
// first, followed by category matches not already listed.
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	text := chi.URLParam(r, "text")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(text); err == nil {
			text = unescaped
		}
	}

	byName, err := h.service.GetProductsByCondition(r.Context(), domain.Contains(domain.FieldProductName, text))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	byCategory, err := h.service.GetProductsByCondition(r.Context(), domain.Contains(domain.FieldCategory, text))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, union(byName, byCategory))
}

// AddProduct handles POST /api/products
func (h *ProductHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.AddRequest
	if !h.decode(w, r, &req) {
		return
	}

	if violations := validator.ValidateAdd(&req); len(violations) > 0 {
		response.ValidationProblem(w, r, validator.FieldMap(violations))
		return
	}

	product, err := h.service.AddProduct(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if product == nil {
		response.ProblemDetail(w, r, http.StatusInternalServerError, "Unable to add the product")
		return
	}

	w.Header().Set("Location", ProductLocation(product.ProductID))
	response.JSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if violations := validator.ValidateUpdate(&req); len(violations) > 0 {
		response.ValidationProblem(w, r, validator.FieldMap(violations))
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if product == nil {
		response.ProblemDetail(w, r, http.StatusInternalServerError, "Unable to update the product")
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.DeleteProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		response.ProblemDetail(w, r, http.StatusInternalServerError, fmt.Sprintf("Error deleting product with ID: %s", id))
		return
	}

	response.JSON(w, http.StatusOK, true)
}

func (h *ProductHandler) productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.ProblemDetail(w, r, http.StatusBadRequest, "Invalid product id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProductHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := jsoncodec.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), v); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.ProblemDetail(w, r, http.StatusBadRequest, "Request body is not a valid product")
		return false
	}
	return true
}

func (h *ProductHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationProblem(w, r, verr.Fields())
	case errors.Is(err, service.ErrInvalidInput):
		response.Error(w, r, http.StatusBadRequest, err)
	default:
		h.logger.ErrorContext(r.Context(), "Request failed",
			slog.String("error", err.Error()),
		)
		response.ProblemDetail(w, r, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func union(first, second []*dto.ProductResponse) []*dto.ProductResponse {
	seen := make(map[uuid.UUID]struct{}, len(first)+len(second))
	out := make([]*dto.ProductResponse, 0, len(first)+len(second))
	for _, list := range [][]*dto.ProductResponse{first, second} {
		for _, p := range list {
			if _, dup := seen[p.ProductID]; dup {
				continue
			}
			seen[p.ProductID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
