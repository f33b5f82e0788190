package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/pivotql/internal/datasetloader"
	"github.com/rpattn/pivotql/internal/repository"
)

type ctxKey string

const datasetLoaderKey ctxKey = "datasetLoader"

// DataLoaderMiddleware attaches a request-scoped dataset loader to the
// request context
func DataLoaderMiddleware(repo repository.DatasetRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Create the dataset loader
			loader := datasetloader.NewDatasetLoader(repo)

			ctx := context.WithValue(r.Context(), datasetLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DatasetLoaderFromContext retrieves the dataset loader from context
func DatasetLoaderFromContext(ctx context.Context) *datasetloader.DatasetLoader {
	if l, ok := ctx.Value(datasetLoaderKey).(*datasetloader.DatasetLoader); ok {
		return l
	}
	return nil
}
