package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaihank/packlist-sanitizer/internal/artifact"
	"github.com/raaihank/packlist-sanitizer/internal/audit"
	"github.com/raaihank/packlist-sanitizer/internal/config"
	"github.com/raaihank/packlist-sanitizer/internal/logger"
	"github.com/raaihank/packlist-sanitizer/internal/registry"
	"github.com/raaihank/packlist-sanitizer/internal/sanitizer"
	"github.com/raaihank/packlist-sanitizer/internal/textextract"
	"github.com/raaihank/packlist-sanitizer/internal/websocket"
)

const packingList = "PACKING LIST\n" +
	"PURCHASE ORDER NO: 8841223\n" +
	"CONTACT customer@buyer.com\n" +
	"COLOR BLACK\n" +
	"SIZES S M\n" +
	"TOTAL UNITS FOR 10 CARTONS 2400"

type memRecorder struct {
	mu   sync.Mutex
	jobs []audit.Job
}

func (m *memRecorder) Record(_ context.Context, job *audit.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = "job-" + string(rune('a'+len(m.jobs)))
	m.jobs = append(m.jobs, *job)
	return nil
}

func (m *memRecorder) List(_ context.Context, limit int) ([]*audit.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*audit.Job{}
	for i := len(m.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		j := m.jobs[i]
		out = append(out, &j)
	}
	return out, nil
}

func (m *memRecorder) Summary(context.Context) (*audit.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &audit.Summary{Total: int64(len(m.jobs))}
	for _, j := range m.jobs {
		switch j.Status {
		case audit.StatusOK:
			s.OK++
		case audit.StatusBlocked:
			s.Blocked++
		case audit.StatusFailed:
			s.Failed++
		}
	}
	return s, nil
}

func (m *memRecorder) Close() error { return nil }

func (m *memRecorder) all() []audit.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Job(nil), m.jobs...)
}

type testEnv struct {
	server   *Server
	recorder *memRecorder
}

func newTestServer(t *testing.T, reg *registry.Registry, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = false
	cfg.Company.Name = "Northwind Trading"
	if mutate != nil {
		mutate(cfg)
	}

	log := logger.NewNop()
	store := artifact.NewMemoryStore(cfg.Artifacts.TTL)
	t.Cleanup(func() { store.Close() })

	rec := &memRecorder{}
	srv, err := New(cfg, Deps{
		Sanitizer: sanitizer.New(reg, log),
		Extractor: textextract.New(textextract.Config{}, log),
		Artifacts: store,
		Audit:     rec,
		Hub:       websocket.NewHub(&websocket.HubConfig{BroadcastRedactions: true}, log),
	}, log)
	require.NoError(t, err)

	return &testEnv{server: srv, recorder: rec}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(config.GetDefaults(), Deps{}, logger.NewNop())
	assert.Error(t, err)
}

func TestHealthAndInfo(t *testing.T) {
	env := newTestServer(t, nil, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, "packlist-sanitizer", info["name"])
	assert.Equal(t, "Northwind Trading", info["company"])
	assert.Equal(t, float64(len(registry.Default().Confidential())), info["confidential_fields"])
	assert.Equal(t, "memory", info["artifact_backend"])
}

func TestUploadPage(t *testing.T) {
	env := newTestServer(t, nil, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_po")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUploadAndDownload(t *testing.T) {
	t.Run("html", func(t *testing.T) {
		env := newTestServer(t, nil, nil)

		rec := env.do(uploadRequest(t, "list.txt", []byte(packingList), map[string]string{
			"internal_po":  "INT-7",
			"factory_name": "Factory 9",
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[uploadResponse](t, rec)
		assert.True(t, resp.Success)
		assert.True(t, strings.HasPrefix(resp.DownloadURL, "/download/factory_packing_INT-7_"))
		assert.True(t, strings.HasSuffix(resp.DownloadURL, ".html"))
		assert.Equal(t, []string{registry.FieldCustomerPO, registry.FieldContactInfo}, resp.Detected.Redacted)
		assert.Equal(t, []string{
			registry.FieldColors,
			registry.FieldSizes,
			registry.FieldTotalUnits,
			registry.FieldTotalCartons,
		}, resp.Detected.Kept)

		dl := env.do(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
		require.Equal(t, http.StatusOK, dl.Code)
		assert.Equal(t, "text/html; charset=utf-8", dl.Header().Get("Content-Type"))
		assert.Contains(t, dl.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, dl.Header().Get("Content-Disposition"), resp.Filename)

		body := dl.Body.String()
		assert.Contains(t, body, "PO# INT-7")
		assert.Contains(t, body, "Factory 9")
		assert.Contains(t, body, "BLACK")
		assert.Contains(t, body, "Northwind Trading")
		assert.Contains(t, body, "Customer Po, Contact Info")
		assert.NotContains(t, body, "8841223")
		assert.NotContains(t, body, "customer@buyer.com")

		jobs := env.recorder.all()
		require.Len(t, jobs, 1)
		assert.Equal(t, audit.StatusOK, jobs[0].Status)
		assert.Equal(t, "upload", jobs[0].Source)
		assert.Equal(t, "INT-7", jobs[0].InternalPO)
		assert.Equal(t, "html", jobs[0].Format)
		assert.Equal(t, []string{registry.FieldCustomerPO, registry.FieldContactInfo}, []string(jobs[0].RedactedFields))
	})

	t.Run("xlsx", func(t *testing.T) {
		env := newTestServer(t, nil, nil)

		rec := env.do(uploadRequest(t, "list.txt", []byte(packingList), map[string]string{
			"internal_po": "INT-8",
			"format":      "xlsx",
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[uploadResponse](t, rec)
		assert.True(t, strings.HasSuffix(resp.DownloadURL, ".xlsx"))

		dl := env.do(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
		require.Equal(t, http.StatusOK, dl.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", dl.Header().Get("Content-Type"))
		assert.NotContains(t, dl.Body.String(), "8841223")
	})
}

func TestUploadRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		status   int
		message  string
	}{
		{"no file", "", "", map[string]string{"internal_po": "INT-1"}, http.StatusBadRequest, "No file uploaded"},
		{"wrong type", "list.docx", packingList, map[string]string{"internal_po": "INT-1"}, http.StatusBadRequest, "Only PDF or text files are allowed"},
		{"missing po", "list.txt", packingList, map[string]string{"internal_po": "   "}, http.StatusBadRequest, "Internal PO number is required"},
		{"bad format", "list.txt", packingList, map[string]string{"internal_po": "INT-1", "format": "pdf"}, http.StatusBadRequest, "Format must be html or xlsx"},
		{"no text", "list.txt", " \n\t ", map[string]string{"internal_po": "INT-1"}, http.StatusUnprocessableEntity, "No text could be extracted from the file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestServer(t, nil, nil)

			rec := env.do(uploadRequest(t, tt.filename, []byte(tt.content), tt.fields))
			assert.Equal(t, tt.status, rec.Code)

			body := decode[map[string]any](t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestServer(t, nil, func(c *config.Config) {
		c.Server.MaxUploadBytes = 256
	})

	big := bytes.Repeat([]byte("COLOR BLACK\n"), 100)
	rec := env.do(uploadRequest(t, "list.txt", big, map[string]string{"internal_po": "INT-1"}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func leakyRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	defs := registry.DefaultDefinitions()
	for i := range defs {
		if defs[i].Name == registry.FieldVendorStyle {
			defs[i].Rules = []registry.MatchRule{{Pattern: `STYLE\s+(\S+)`, CaseInsensitive: true, Yield: registry.YieldGroup}}
		}
	}
	reg, err := registry.New(defs...)
	require.NoError(t, err)
	return reg
}

func TestUploadWithheldOnLeak(t *testing.T) {
	env := newTestServer(t, leakyRegistry(t), nil)

	rec := env.do(uploadRequest(t, "list.txt", []byte("STYLE buyer@acme.com\nCOLOR BLACK"), map[string]string{"internal_po": "INT-2"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, rec.Body.String(), "buyer@acme.com")
	assert.Equal(t, withheldMessage, decode[map[string]any](t, rec)["error"])

	jobs := env.recorder.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, audit.StatusBlocked, jobs[0].Status)
	assert.Empty(t, jobs[0].RedactedFields)

	stats, err := env.server.artifacts.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Stored)
	assert.Equal(t, int64(1), env.server.blockedJobs.Load())
}

func TestDownloadNotFound(t *testing.T) {
	env := newTestServer(t, nil, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/download/factory_packing_X_deadbeef.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeAPI(t *testing.T) {
	env := newTestServer(t, nil, nil)

	t.Run("facts", func(t *testing.T) {
		payload, err := json.Marshal(sanitizeRequest{Text: packingList})
		require.NoError(t, err)

		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/sanitize", bytes.NewReader(payload)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "8841223")

		resp := decode[sanitizeResponse](t, rec)
		assert.Equal(t, []string{"BLACK"}, resp.Facts.Colors)
		assert.Equal(t, "2400", resp.Facts.TotalUnits)
		assert.Equal(t, []string{registry.FieldCustomerPO, registry.FieldContactInfo}, resp.Redacted)
		require.NotEmpty(t, resp.Findings)
		assert.Equal(t, registry.FieldCustomerPO, resp.Findings[0].Field)
		assert.Equal(t, "confidential", resp.Findings[0].Kind)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/sanitize", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("jobs", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit=10", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Jobs    []audit.Job   `json:"jobs"`
			Summary audit.Summary `json:"summary"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Jobs, 1)
		assert.Equal(t, "api", resp.Jobs[0].Source)
		assert.Equal(t, int64(1), resp.Summary.OK)

		rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit=zero", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	env := newTestServer(t, nil, func(c *config.Config) {
		c.RateLimit.Enabled = true
		c.RateLimit.RequestsPerMin = 60
		c.RateLimit.Burst = 2
	})

	for i := 0; i < 2; i++ {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// health checks bypass the limiter
	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
