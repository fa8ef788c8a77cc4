// Package http provides HTTP handlers for tokenization vault operations.
package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

// eagerStatusWriter flushes status-only responses to the recorder
// immediately; outside a gin.Engine nothing calls WriteHeaderNow for
// bodyless handlers, so the recorder would otherwise report 200.
type eagerStatusWriter struct {
	gin.ResponseWriter
}

func (w *eagerStatusWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
	w.ResponseWriter.WriteHeaderNow()
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Writer = &eagerStatusWriter{ResponseWriter: c.Writer}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}
