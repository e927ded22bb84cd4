package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/company-researcher/pkg/vectorstore"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(&Service{}).RegisterRoutes(r)
	return r
}

func TestSearchEvidenceRejectsBadRequests(t *testing.T) {
	r := testRouter()
	jobID := uuid.New().String()

	tests := []struct {
		name string
		url  string
	}{
		{"invalid uuid", "/api/research/not-a-uuid/evidence?q=funding"},
		{"missing query", "/api/research/" + jobID + "/evidence"},
		{"blank query", "/api/research/" + jobID + "/evidence?q=%20"},
		{"bad top_k", "/api/research/" + jobID + "/evidence?q=funding&top_k=zero"},
		{"negative top_k", "/api/research/" + jobID + "/evidence?q=funding&top_k=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestStreamRejectsInvalidUUID(t *testing.T) {
	r := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/research/not-a-uuid/stream", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvidenceTableNameIsValidIdentifier(t *testing.T) {
	// The per-job table name must pass the vector store's identifier check,
	// whatever the UUID.
	for i := 0; i < 20; i++ {
		table := evidenceTable(uuid.New())
		_, err := vectorstore.NewPGVectorStore(nil, table)
		require.NoError(t, err, "table name %q rejected", table)
	}
}
