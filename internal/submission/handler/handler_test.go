package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/internal/submission/models"
	"wayfare/internal/submission/service"
	"wayfare/internal/submission/store"
	id "wayfare/pkg/domain"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()
	svc := service.NewService(store.NewInMemory(),
		service.WithLogger(slog.New(slog.DiscardHandler)),
	)
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func createBody(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"travel_request_id": uuid.NewString(),
		"agent_id":          uuid.NewString(),
		"traveler_id":       uuid.NewString(),
		"content": map[string]any{
			"source":    "free_text",
			"free_text": map[string]string{"text": text},
		},
	})
	return body
}

func postJSON(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandleCreate(t *testing.T) {
	t.Run("creates a submission", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/agents/submissions", createBody("a fortnight in Kerala"))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		got := decode(t, resp)
		assert.Equal(t, string(models.StatusPending), got["status"])
		assert.NotEmpty(t, got["id"])
		assert.Contains(t, got["content_hash"], "sha256:")
	})

	t.Run("duplicate content returns the existing submission id", func(t *testing.T) {
		srv, _ := newTestServer(t)

		first := postJSON(t, srv.URL+"/agents/submissions", createBody("the exact same trip"))
		require.Equal(t, http.StatusCreated, first.StatusCode)
		firstBody := decode(t, first)

		second := postJSON(t, srv.URL+"/agents/submissions", createBody("the exact same trip"))
		require.Equal(t, http.StatusConflict, second.StatusCode)

		got := decode(t, second)
		assert.Equal(t, "duplicate", got["error"])
		assert.Equal(t, firstBody["id"], got["existing_submission_id"])
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := newTestServer(t)
		resp := postJSON(t, srv.URL+"/agents/submissions", []byte("{not json"))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing content", func(t *testing.T) {
		srv, _ := newTestServer(t)
		body, _ := json.Marshal(map[string]any{
			"travel_request_id": uuid.NewString(),
			"agent_id":          uuid.NewString(),
			"traveler_id":       uuid.NewString(),
		})
		resp := postJSON(t, srv.URL+"/agents/submissions", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", decode(t, resp)["error"])
	})

	t.Run("invalid content payload", func(t *testing.T) {
		srv, _ := newTestServer(t)
		body, _ := json.Marshal(map[string]any{
			"travel_request_id": uuid.NewString(),
			"agent_id":          uuid.NewString(),
			"traveler_id":       uuid.NewString(),
			"content":           map[string]any{"source": "free_text"},
		})
		resp := postJSON(t, srv.URL+"/agents/submissions", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleGet(t *testing.T) {
	srv, _ := newTestServer(t)

	created := postJSON(t, srv.URL+"/agents/submissions", createBody("fetch me"))
	require.Equal(t, http.StatusCreated, created.StatusCode)
	subID := decode(t, created)["id"].(string)

	t.Run("found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/agents/submissions/" + subID)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, subID, decode(t, resp)["id"])
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/agents/submissions/" + uuid.NewString())
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/agents/submissions/not-a-uuid")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleList(t *testing.T) {
	srv, _ := newTestServer(t)

	created := postJSON(t, srv.URL+"/agents/submissions", createBody("list me"))
	require.Equal(t, http.StatusCreated, created.StatusCode)
	body := decode(t, created)

	t.Run("by travel request", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/agents/submissions?request_id=" + body["travel_request_id"].(string))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := decode(t, resp)
		assert.Len(t, got["submissions"], 1)
	})

	t.Run("by agent", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/agents/submissions?agent_id=" + body["agent_id"].(string))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("no filter", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/agents/submissions")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("both filters", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/agents/submissions?request_id=%s&agent_id=%s",
			srv.URL, uuid.NewString(), uuid.NewString()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func patchStatus(t *testing.T, srv *httptest.Server, subID, status, errMsg string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"status": status, "error_message": errMsg})
	req, err := http.NewRequest(http.MethodPatch,
		srv.URL+"/internal/submissions/"+subID+"/status", bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleUpdateStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	created := postJSON(t, srv.URL+"/agents/submissions", createBody("status walk"))
	subID := decode(t, created)["id"].(string)

	t.Run("valid transition", func(t *testing.T) {
		resp := patchStatus(t, srv, subID, "processing", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, string(models.StatusProcessing), decode(t, resp)["status"])
	})

	t.Run("unknown status value", func(t *testing.T) {
		resp := patchStatus(t, srv, subID, "shipped", "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("illegal transition is not a caller error", func(t *testing.T) {
		resp := patchStatus(t, srv, subID, "pending", "")
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		// internal detail is not leaked
		got := decode(t, resp)
		assert.NotContains(t, got, "error_description")
	})

	t.Run("failed requires an error message", func(t *testing.T) {
		resp := patchStatus(t, srv, subID, "failed", "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleLink(t *testing.T) {
	srv, _ := newTestServer(t)

	created := postJSON(t, srv.URL+"/agents/submissions", createBody("link walk"))
	subID := decode(t, created)["id"].(string)

	link := func(itineraryID string) *http.Response {
		body, _ := json.Marshal(map[string]string{"itinerary_id": itineraryID})
		return postJSON(t, srv.URL+"/internal/submissions/"+subID+"/link", body)
	}

	t.Run("link before PARSED fails", func(t *testing.T) {
		resp := link(uuid.NewString())
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("link after PARSED completes the submission", func(t *testing.T) {
		require.Equal(t, http.StatusOK, patchStatus(t, srv, subID, "processing", "").StatusCode)
		require.Equal(t, http.StatusOK, patchStatus(t, srv, subID, "parsed", "").StatusCode)

		itineraryID := id.NewItineraryID().String()
		resp := link(itineraryID)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		got := decode(t, resp)
		assert.Equal(t, string(models.StatusCompleted), got["status"])
		assert.Equal(t, itineraryID, got["resulting_itinerary_id"])
	})
}
