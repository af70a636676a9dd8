package route

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/DanilSvechnikar/wildfire-detection/internal/command"
	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/location"
	"github.com/DanilSvechnikar/wildfire-detection/internal/repository/sqldb"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/evaluation"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/mapping"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/results"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/storage"
	"github.com/DanilSvechnikar/wildfire-detection/internal/service/websocket"
	"github.com/DanilSvechnikar/wildfire-detection/internal/testutil"
)

type firePredictor struct{}

// Predict reports fire in images whose name starts with "fire".
func (firePredictor) Predict(_ context.Context, path, annotatedPath string) ([]dto.DetectionResult, error) {
	if err := os.WriteFile(annotatedPath, []byte("annotated"), 0644); err != nil {
		return nil, err
	}
	if strings.HasPrefix(filepath.Base(path), "fire") {
		return []dto.DetectionResult{{Label: "fire", Confidence: 0.8}}, nil
	}
	return nil, nil
}

func newServer(t *testing.T) (*httptest.Server, *websocket.HubService, string) {
	t.Helper()
	cfg := testutil.Config(t)
	cfg.StaticDirectory = t.TempDir()
	if err := os.WriteFile(filepath.Join(cfg.StaticDirectory, "index.html"), []byte("<h1>Forest Fire Detection</h1>"), 0644); err != nil {
		t.Fatal(err)
	}
	log := testutil.Logger(t)

	db, err := sqldb.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	runs, records := sqldb.NewRunRepository(db), sqldb.NewRecordRepository(db)

	mapper, err := mapping.NewBuilder(cfg.MapPath, log)
	if err != nil {
		t.Fatal(err)
	}
	table := location.NewSyntheticTableFromRows(nil)
	hub := websocket.NewHubService(log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	manager := service.NewManager(service.Dependencies{
		Adapter:    evaluation.NewAdapter(firePredictor{}, cfg, log),
		Resolver:   location.NewResolver(table, nil, nil, log),
		Aggregator: results.NewAggregator(nil),
		Map:        mapper,
		Buffer:     storage.NewBufferService(cfg, log, records),
		Runs:       runs,
		Hub:        hub,
	}, cfg, log)

	server := httptest.NewServer(SetupRoutes(Dependencies{
		Config:     cfg,
		Logger:     log,
		Controller: command.NewController(manager, log),
		Hub:        hub,
		Runs:       runs,
		Records:    records,
	}))
	t.Cleanup(server.Close)

	gallery := t.TempDir()
	testutil.WritePNG(t, gallery, "fire_ridge.png")
	testutil.WritePNG(t, gallery, "valley.png")
	return server, hub, gallery
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestRoutes_EvaluateGallery(t *testing.T) {
	server, hub, gallery := newServer(t)

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/view", nil)
	if err != nil {
		t.Fatalf("viewer dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if res := post(t, server.URL+"/api/gallery", fmt.Sprintf(`{"path": %q}`, gallery)); res.StatusCode != http.StatusOK {
		t.Fatalf("gallery returned %d", res.StatusCode)
	}

	res := post(t, server.URL+"/api/evaluate", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("evaluate returned %d", res.StatusCode)
	}
	var state command.State
	if err := json.NewDecoder(res.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}

	var types []string
	for len(types) < 5 {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("viewer read failed after %v: %v", types, err)
		}
		var event dto.Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatal(err)
		}
		types = append(types, event.Type)
	}
	want := []string{dto.EventRunStarted, dto.EventRecord, dto.EventRecord, dto.EventBatch, dto.EventRunFinished}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("viewer events %v, expected %v", types, want)
	}

	if len(state.Rows) != 2 || state.Rows[0].Label != dto.LabelFire || state.Rows[1].Label != dto.LabelNoFire {
		t.Fatalf("unexpected rows %+v", state.Rows)
	}

	get, err := http.Get(server.URL + "/api/results?label=fire")
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	var page dto.ResultsData
	if err := json.NewDecoder(get.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.RunID != state.RunID || page.Length != 1 || page.Rows[0].Name != "fire_ridge.png" {
		t.Errorf("unexpected stored results %+v", page)
	}

	for _, path := range []string{"/map", "/predicted/fire_ridge.png", "/", "/api/state", "/api/runs", "/logs/info"} {
		res, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Errorf("GET %s returned %d", path, res.StatusCode)
		}
	}
}

func TestRoutes_MethodsAndMissingPages(t *testing.T) {
	server, _, _ := newServer(t)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/evaluate", nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for DELETE /api/evaluate, got %d", res.StatusCode)
	}

	res, err = http.Get(server.URL + "/settings")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing page, got %d", res.StatusCode)
	}

	if res := post(t, server.URL+"/api/evaluate", ""); res.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 before a gallery is open, got %d", res.StatusCode)
	}
}
