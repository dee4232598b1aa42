package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestGetRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "test-123")
	assert.Equal(t, "test-123", GetRequestID(ctx))
	assert.Equal(t, "", GetRequestID(context.Background()))
	assert.Equal(t, "", GetRequestID(context.WithValue(context.Background(), RequestIDKey, 42)))
}

func TestIsValidRequestID(t *testing.T) {
	assert.True(t, isValidRequestID("abc-123_DEF"))
	assert.False(t, isValidRequestID(""))
	assert.False(t, isValidRequestID("has space"))
	assert.False(t, isValidRequestID(string(make([]byte, requestIDMaxLength+1))))
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	assert.Equal(t, http.StatusOK, rw.statusCode)

	rw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rw.statusCode)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	// httptest.ResponseRecorder cannot be hijacked
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}

func TestRouteTemplate(t *testing.T) {
	var got string
	router := mux.NewRouter()
	router.HandleFunc("/api/scripts/{id}", func(w http.ResponseWriter, r *http.Request) {
		got = routeTemplate(r)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/scripts/abc", nil))
	assert.Equal(t, "/api/scripts/{id}", got)

	assert.Equal(t, "unmatched", routeTemplate(httptest.NewRequest(http.MethodGet, "/", nil)))
}
