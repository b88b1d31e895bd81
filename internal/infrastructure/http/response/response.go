package response

import (
	"net/http"

	"github.com/mrops-br/products-catalog-api/internal/infrastructure/jsoncodec"
)

const (
	typeBadRequest    = "https://tools.ietf.org/html/rfc9110#section-15.5.1"
	typeInternalError = "https://tools.ietf.org/html/rfc9110#section-15.6.1"
	typeUnavailable   = "https://tools.ietf.org/html/rfc9110#section-15.6.4"
	typeGeneric       = "about:blank"

	titleValidation = "One or more validation errors occurred."
	titleInternal   = "An error occurred while processing your request."
)

// Problem is an RFC 7807 problem details body
type Problem struct {
	Type     string              `json:"type"`
	Title    string              `json:"title"`
	Status   int                 `json:"status"`
	Detail   string              `json:"detail,omitempty"`
	Instance string              `json:"instance,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, "application/json", status, data)
}

// Error sends a problem response with err's message as detail
func Error(w http.ResponseWriter, r *http.Request, status int, err error) {
	ProblemDetail(w, r, status, err.Error())
}

// ProblemDetail sends a problem response carrying detail
func ProblemDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	p := Problem{
		Type:     typeGeneric,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
	switch status {
	case http.StatusBadRequest:
		p.Type = typeBadRequest
	case http.StatusInternalServerError:
		p.Type = typeInternalError
		p.Title = titleInternal
	case http.StatusServiceUnavailable:
		p.Type = typeUnavailable
	}
	write(w, "application/problem+json", status, p)
}

// ValidationProblem sends a 400 problem listing messages per field
func ValidationProblem(w http.ResponseWriter, r *http.Request, errors map[string][]string) {
	write(w, "application/problem+json", http.StatusBadRequest, Problem{
		Type:     typeBadRequest,
		Title:    titleValidation,
		Status:   http.StatusBadRequest,
		Instance: r.URL.Path,
		Errors:   errors,
	})
}

func write(w http.ResponseWriter, contentType string, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = jsoncodec.Encode(w, data)
}
