// Package mapping renders processed image locations to a standalone HTML map.
package mapping

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"

	"github.com/DanilSvechnikar/wildfire-detection/internal/logger"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

//go:embed templates/map.html
var templates embed.FS

const (
	defaultZoom = 2
	singleZoom  = 10
)

type page struct {
	Title   string
	Markers []model.MapMarker
	Center  model.Location
	Zoom    int
}

// Builder keeps the markers of the current run and rewrites the map document on every change.
type Builder struct {
	mu      sync.Mutex
	path    string
	title   string
	markers []model.MapMarker
	tmpl    *template.Template
	logger  *logger.Logger
}

// NewBuilder creates a builder writing to path.
func NewBuilder(path string, logger *logger.Logger) (*Builder, error) {
	tmpl, err := template.ParseFS(templates, "templates/map.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse map template: %w", err)
	}

	return &Builder{
		path:   path,
		title:  "Forest Fire Detection",
		tmpl:   tmpl,
		logger: logger,
	}, nil
}

// Path returns the map document location.
func (b *Builder) Path() string {
	return b.path
}

// AddMarker appends a marker and saves the map.
func (b *Builder) AddMarker(lat, lon float64, label string) error {
	return b.Add(model.MapMarker{Latitude: lat, Longitude: lon, Label: label})
}

// Add appends marker and saves the map. The marker is kept even if the save fails.
func (b *Builder) Add(marker model.MapMarker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.markers = append(b.markers, marker)
	return b.save()
}

// Markers returns a copy of the markers in insertion order.
func (b *Builder) Markers() []model.MapMarker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.MapMarker{}, b.markers...)
}

// Reset drops all markers and writes an empty map.
func (b *Builder) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.markers = nil
	return b.save()
}

// render writes the document for the current markers to buf.
func (b *Builder) render(buf *bytes.Buffer) error {
	p := page{Title: b.title, Markers: b.markers, Zoom: defaultZoom}
	if p.Markers == nil {
		p.Markers = []model.MapMarker{}
	}
	if len(b.markers) > 0 {
		first := b.markers[0]
		p.Center = model.Location{Latitude: first.Latitude, Longitude: first.Longitude}
		p.Zoom = singleZoom
	}
	return b.tmpl.Execute(buf, p)
}

// save must be called with mu held. The document is replaced atomically.
func (b *Builder) save() error {
	var buf bytes.Buffer
	if err := b.render(&buf); err != nil {
		return fmt.Errorf("failed to render map: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create map directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".map-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temporary map file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write map: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace map: %w", err)
	}

	b.logger.Info("Map saved with %d markers to %s", len(b.markers), b.path)
	return nil
}
