package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/db"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/metrics"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/broadcast"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/camera"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/publisher"
)

type frameSource struct {
	mu   sync.Mutex
	n    int64
	next int64
}

func (s *frameSource) Info() models.SourceInfo {
	return models.SourceInfo{FPS: 30, TotalFrames: s.n, Width: 640, Height: 480}
}

func (s *frameSource) Next(ctx context.Context) (models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= s.n {
		return models.Frame{}, io.EOF
	}
	f := models.Frame{Index: s.next, Timestamp: time.Now(), Width: 640, Height: 480}
	s.next++
	return f, nil
}

func (s *frameSource) Close() error { return nil }

// frames:N opens a finite source of N frames
type fileOpener struct{}

func (fileOpener) Open(_ context.Context, spec models.SourceSpec) (camera.Source, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(spec.URI, "frames:"))
	if err != nil {
		return nil, fmt.Errorf("cannot open %s", spec.URI)
	}
	return &frameSource{n: int64(n)}, nil
}

func (fileOpener) FirstFrame(_ context.Context, spec models.SourceSpec) (models.Frame, error) {
	return models.Frame{Width: 640, Height: 480, Encoding: "jpeg", Data: []byte{0xff, 0xd8, 0xff}}, nil
}

// one vehicle crosses the y=100 line downward on every frame after the first
type conveyor struct{}

func (conveyor) Track(_ context.Context, _ models.CameraRole, f models.Frame) ([]models.TrackedObject, error) {
	objs := []models.TrackedObject{{
		TrackID:    fmt.Sprintf("t%d", f.Index),
		Category:   "Sedan",
		BBox:       models.BoundingBox{X1: 90, Y1: 40, X2: 110, Y2: 80},
		Confidence: 0.9,
	}}
	if f.Index > 0 {
		objs = append(objs, models.TrackedObject{
			TrackID:    fmt.Sprintf("t%d", f.Index-1),
			Category:   "Sedan",
			BBox:       models.BoundingBox{X1: 90, Y1: 80, X2: 110, Y2: 120},
			Confidence: 0.9,
		})
	}
	return objs, nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Version:             "test",
		WorkerID:            "counter-test",
		Port:                0,
		CameraRoles:         "ENTRY,EXIT",
		SiteLocation:        "north-gate",
		ProgressEveryFrames: 5,
		PublishTimeout:      time.Second,
		DatabasePath:        filepath.Join(t.TempDir(), "counting.db"),
		WSSendBuffer:        16,
		WSWriteTimeout:      time.Second,
		MetricsEnabled:      true,
		SwaggerHost:         "localhost",
		SwaggerPort:         8000,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig(t)

	store, err := db.NewDB(cfg.DatabasePath)
	require.NoError(t, err)

	sc := &services.ServiceContainer{
		Config:    cfg,
		Store:     store,
		Hub:       broadcast.NewHub(cfg),
		Metrics:   metrics.New(),
		Publisher: publisher.NewService(cfg),
	}
	sc.Publisher.Register("sqlite", sc.Store)
	sc.Publisher.Register("websocket", sc.Hub)
	sc.Publisher.Register("metrics", sc.Metrics)

	sc.CameraManager, err = camera.NewManager(cfg, camera.ManagerDeps{
		Opener:    fileOpener{},
		Grabber:   fileOpener{},
		Tracker:   conveyor{},
		Publisher: sc.Publisher,
		Observer:  sc.Metrics,
	})
	require.NoError(t, err)

	s := NewServerWithContainer(cfg, sc)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sc.Shutdown(ctx)
	})
	return s
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// flush waits for the publish queue so sinks reflect every emitted envelope
func flush(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.container.CameraManager.Flush(ctx))
}

var horizontalLine = map[string]interface{}{
	"points": [][]float64{{0, 100}, {200, 100}},
}

func waitForState(t *testing.T, s *Server, role, state string) models.JobStatus {
	t.Helper()
	var status models.JobStatus
	require.Eventually(t, func() bool {
		rec := do(t, s, http.MethodGet, "/cameras/"+role+"/status", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		decode(t, rec, &status)
		return status.State == state
	}, 5*time.Second, 10*time.Millisecond)
	return status
}

func TestCountingFlow(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/cameras/entry/source", map[string]string{"kind": "file", "uri": "frames:11"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPut, "/cameras/ENTRY/line", horizontalLine)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var status models.JobStatus
	decode(t, rec, &status)
	assert.Equal(t, "ready", status.State)

	rec = do(t, s, http.MethodPost, "/cameras/ENTRY/start", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	status = waitForState(t, s, "ENTRY", "completed")
	assert.Equal(t, int64(11), status.FramesProcessed)
	assert.Equal(t, 10, status.Events)
	assert.Equal(t, 100.0, status.Progress.Percent)

	var cam models.CameraStatistics
	decode(t, do(t, s, http.MethodGet, "/cameras/ENTRY/statistics", nil), &cam)
	assert.Equal(t, 10, cam.VehiclesIn)
	assert.Equal(t, 10, cam.PeopleOnSiteMin)
	assert.Equal(t, 50, cam.PeopleOnSiteMax)

	var site models.SiteStatistics
	decode(t, do(t, s, http.MethodGet, "/statistics", nil), &site)
	assert.Equal(t, 10, site.NetVehicles)
	assert.Equal(t, 10, site.VehicleDistribution["Sedan"])
	assert.Equal(t, "north-gate", site.Location)

	var events struct {
		Events []models.CrossingEvent `json:"events"`
		Count  int                    `json:"count"`
	}
	decode(t, do(t, s, http.MethodGet, "/cameras/ENTRY/events?limit=3", nil), &events)
	require.Equal(t, 3, events.Count)
	assert.Equal(t, models.DirectionIn, events.Events[2].Direction)
	assert.Equal(t, int64(10), events.Events[2].FrameIndex)

	// persisted copies of the current session
	var persisted models.SiteStatistics
	rec = do(t, s, http.MethodGet, "/sessions/recent/"+site.SessionID+"/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &persisted)
	assert.Equal(t, 10, persisted.VehiclesIn)
	assert.Equal(t, 50, persisted.PeopleOnSiteMax)

	var report struct {
		State      string                  `json:"state"`
		Statistics models.CameraStatistics `json:"statistics"`
		Events     []models.CrossingEvent  `json:"events"`
	}
	rec = do(t, s, http.MethodGet, "/sessions/recent/"+site.SessionID+"/cameras/entry?limit=4", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &report)
	assert.Equal(t, "completed", report.State)
	assert.Equal(t, 10, report.Statistics.VehiclesIn)
	require.Len(t, report.Events, 4)
	assert.Equal(t, int64(10), report.Events[3].FrameIndex)

	flush(t, s)
	rec = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `counting_crossings_total{camera_role="ENTRY",category="Sedan",direction="IN"} 10`)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown role", http.MethodGet, "/cameras/LOBBY/status", nil, http.StatusNotFound},
		{"start without source", http.MethodPost, "/cameras/ENTRY/start", nil, http.StatusConflict},
		{"stop idle job", http.MethodPost, "/cameras/EXIT/stop", nil, http.StatusConflict},
		{"three points", http.MethodPut, "/cameras/ENTRY/line", map[string]interface{}{"points": [][]float64{{0, 0}, {1, 1}, {2, 2}}}, http.StatusBadRequest},
		{"short point", http.MethodPut, "/cameras/ENTRY/line", map[string]interface{}{"points": [][]float64{{0, 0}, {1}}}, http.StatusBadRequest},
		{"degenerate line", http.MethodPut, "/cameras/ENTRY/line", map[string]interface{}{"points": [][]float64{{5, 5}, {5, 5}}}, http.StatusBadRequest},
		{"bad inside", http.MethodPut, "/cameras/ENTRY/line", map[string]interface{}{"points": [][]float64{{0, 0}, {1, 1}}, "inside": "up"}, http.StatusBadRequest},
		{"bad kind", http.MethodPut, "/cameras/ENTRY/source", map[string]string{"kind": "ftp", "uri": "x"}, http.StatusBadRequest},
		{"bad mode", http.MethodPut, "/cameras/ENTRY/source", map[string]string{"kind": "file", "uri": "frames:1", "mode": "merge"}, http.StatusBadRequest},
		{"missing uri", http.MethodPut, "/cameras/ENTRY/source", map[string]string{"kind": "file"}, http.StatusBadRequest},
		{"first frame without source", http.MethodGet, "/cameras/ENTRY/first-frame", nil, http.StatusConflict},
		{"bad limit", http.MethodGet, "/cameras/ENTRY/events?limit=-1", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestLineBeforeSourceThenStart(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/cameras/EXIT/line", horizontalLine)
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.JobStatus
	decode(t, rec, &status)
	assert.Equal(t, "idle", status.State)

	rec = do(t, s, http.MethodPut, "/cameras/EXIT/source", map[string]string{"kind": "file", "uri": "frames:3"})
	decode(t, rec, &status)
	assert.Equal(t, "ready", status.State)

	require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/cameras/EXIT/start", nil).Code)
	waitForState(t, s, "EXIT", "completed")

	var cam models.CameraStatistics
	decode(t, do(t, s, http.MethodGet, "/cameras/EXIT/statistics", nil), &cam)
	assert.Equal(t, 2, cam.VehiclesOut)
}

func TestFirstFrame(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, "/cameras/ENTRY/source", map[string]string{"kind": "file", "uri": "frames:1"}).Code)

	rec := do(t, s, http.MethodGet, "/cameras/ENTRY/first-frame", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Width    int    `json:"width"`
		Encoding string `json:"encoding"`
		Image    string `json:"image"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 640, resp.Width)
	assert.Equal(t, "jpeg", resp.Encoding)
	assert.Equal(t, "/9j/", resp.Image)
}

func TestSessions(t *testing.T) {
	s := newTestServer(t)

	var first models.Session
	decode(t, do(t, s, http.MethodGet, "/sessions/current", nil), &first)
	assert.Equal(t, "north-gate", first.Location)
	assert.Equal(t, []models.CameraRole{models.RoleEntry, models.RoleExit}, first.Roles)

	rec := do(t, s, http.MethodPost, "/sessions", map[string]string{"location": "south-gate"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var second models.Session
	decode(t, rec, &second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "south-gate", second.Location)

	flush(t, s)
	var recent struct {
		Sessions []models.Session `json:"sessions"`
	}
	decode(t, do(t, s, http.MethodGet, "/sessions/recent?limit=5", nil), &recent)
	require.Len(t, recent.Sessions, 2)
	assert.Equal(t, second.ID, recent.Sessions[0].ID)
}

func TestHealthAndInfo(t *testing.T) {
	s := newTestServer(t)

	var health struct {
		Status   string `json:"status"`
		WorkerID string `json:"worker_id"`
	}
	rec := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &health)
	// no tracker in the container
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "counter-test", health.WorkerID)

	rec = do(t, s, http.MethodGet, "/system/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sinks":["sqlite","websocket","metrics"]`)

	rec = do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPastSessionNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/sessions/recent/no-such-session/statistics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/sessions/recent/no-such-session/cameras/ENTRY", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/sessions/recent/no-such-session/cameras/ENTRY?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestPastSessionCameraWithoutCrossings(t *testing.T) {
	s := newTestServer(t)

	// a status was persisted for EXIT but it never counted anything
	rec := do(t, s, http.MethodPut, "/cameras/EXIT/line", horizontalLine)
	require.Equal(t, http.StatusOK, rec.Code)

	var current models.Session
	decode(t, do(t, s, http.MethodGet, "/sessions/current", nil), &current)

	var report struct {
		State      string                  `json:"state"`
		Statistics models.CameraStatistics `json:"statistics"`
		Events     []models.CrossingEvent  `json:"events"`
	}
	rec = do(t, s, http.MethodGet, "/sessions/recent/"+current.ID+"/cameras/EXIT", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &report)
	assert.Equal(t, "idle", report.State)
	assert.Equal(t, 0, report.Statistics.VehiclesOut)
	assert.Empty(t, report.Events)
}
