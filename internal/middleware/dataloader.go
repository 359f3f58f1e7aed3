package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/sheetpattern/internal/patternloader"
	"github.com/rpattn/sheetpattern/internal/repository"

	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const patternLoaderKey ctxKey = "patternLoader"

// DataLoaderMiddleware attaches a dataloader to the request context
func DataLoaderMiddleware(repo repository.PatternRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := patternloader.NewPatternLoader(repo)

			ctx := context.WithValue(r.Context(), patternLoaderKey, loader.Loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PatternLoaderFromContext retrieves the dataloader from context
func PatternLoaderFromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(patternLoaderKey).(*dataloader.Loader); ok {
		return l
	}
	return nil
}
