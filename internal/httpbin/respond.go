package httpbin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// respondJSON writes data as the JSON body with the given status code.
func respondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	setStatusCode(ctx, statusCode)

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(jsonData)))
	w.WriteHeader(statusCode)

	if _, err = w.Write(jsonData); err != nil {
		return err
	}

	return nil
}

// respondRaw writes body with an explicit Content-Type.
func respondRaw(ctx context.Context, w http.ResponseWriter, statusCode int, contentType string, body []byte) error {
	setStatusCode(ctx, statusCode)

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if body != nil {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	w.WriteHeader(statusCode)

	_, err := w.Write(body)
	return err
}
