package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/shortener"
)

// Generated docs live under a segment no code can take.
const (
	DocsPath    = "/_/docs"
	OpenAPIPath = "/_/openapi"
	SchemasPath = "/_/schemas"
)

// NewAPIConfig returns the huma config with docs moved off the code namespace.
func NewAPIConfig(title, version string) huma.Config {
	config := huma.DefaultConfig(title, version)
	config.DocsPath = DocsPath
	config.OpenAPIPath = OpenAPIPath
	config.SchemasPath = SchemasPath

	return config
}

// ReservedCodes are single path segments answered by routes other than the redirect.
// The allocator must never hand them out.
func ReservedCodes() []shortener.Code {
	return []shortener.Code{"shorten", "stats", "health"}
}

// RegisterRoutes registers all URL shortener routes.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-short-url",
		Method:        http.MethodPost,
		Path:          "/shorten",
		Summary:       "Create short URL",
		Description:   "Allocates a new short code for the given URL. Every call yields a fresh code.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
	}, urlHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "get-url-stats",
		Method:      http.MethodGet,
		Path:        "/stats/{code}",
		Summary:     "Get visit stats",
		Description: "Returns the visit counters of a short code. Counts are eventually consistent.",
		Tags:        []string{"URLs"},
	}, urlHandler.GetStats)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL associated with the short code.",
		Tags:        []string{"URLs"},
	}, urlHandler.RedirectToURL)
}
