package mapsync

import (
	"fmt"
	"sync"
)

// MemoryProvider is an in-process Provider holding the declarative map
// state: sources, layers, filters, paint properties, and camera. The web
// layer serves this state to the browser widget, which renders it; tests
// use it directly to verify controller behavior.
type MemoryProvider struct {
	mu      sync.RWMutex
	loaded  bool
	sources map[string]any
	layers  map[string]LayerSpec
	order   []string
	camera  Camera
	fits    int
}

// NewMemoryProvider creates a provider with the given initial camera.
// It starts not loaded; call SetLoaded once the widget is ready.
func NewMemoryProvider(camera Camera) *MemoryProvider {
	return &MemoryProvider{
		sources: make(map[string]any),
		layers:  make(map[string]LayerSpec),
		camera:  camera,
	}
}

// SetLoaded flips the readiness signal.
func (p *MemoryProvider) SetLoaded(loaded bool) {
	p.mu.Lock()
	p.loaded = loaded
	p.mu.Unlock()
}

func (p *MemoryProvider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

func (p *MemoryProvider) AddSource(id string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[id] = data
	return nil
}

func (p *MemoryProvider) RemoveSource(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sources, id)
	return nil
}

func (p *MemoryProvider) AddLayer(layer LayerSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sources[layer.Source]; !ok {
		return fmt.Errorf("layer %q references unknown source %q", layer.ID, layer.Source)
	}
	if _, ok := p.layers[layer.ID]; !ok {
		p.order = append(p.order, layer.ID)
	}
	p.layers[layer.ID] = layer
	return nil
}

func (p *MemoryProvider) RemoveLayer(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.layers, id)
	for i, lid := range p.order {
		if lid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

func (p *MemoryProvider) SetFilter(layerID string, filter []any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	layer, ok := p.layers[layerID]
	if !ok {
		return fmt.Errorf("unknown layer %q", layerID)
	}
	layer.Filter = filter
	p.layers[layerID] = layer
	return nil
}

func (p *MemoryProvider) SetPaint(layerID, prop string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	layer, ok := p.layers[layerID]
	if !ok {
		return fmt.Errorf("unknown layer %q", layerID)
	}
	if layer.Paint == nil {
		layer.Paint = make(map[string]any)
	} else {
		paint := make(map[string]any, len(layer.Paint))
		for k, v := range layer.Paint {
			paint[k] = v
		}
		layer.Paint = paint
	}
	layer.Paint[prop] = value
	p.layers[layerID] = layer
	return nil
}

func (p *MemoryProvider) FitBounds(b Bounds) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	lng, lat := b.Center()
	p.camera = Camera{Lng: lng, Lat: lat, Zoom: p.camera.Zoom}
	p.fits++
	return nil
}

func (p *MemoryProvider) Camera() Camera {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.camera
}

// FitCount returns how many times the camera was re-fitted. Used to verify
// that filter and restyle operations never touch the camera.
func (p *MemoryProvider) FitCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fits
}

// Source returns the data attached to a source id.
func (p *MemoryProvider) Source(id string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.sources[id]
	return data, ok
}

// Sources returns a copy of the source map keyed by id.
func (p *MemoryProvider) Sources() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.sources))
	for id, data := range p.sources {
		out[id] = data
	}
	return out
}

// Layer returns the layer spec for an id.
func (p *MemoryProvider) Layer(id string) (LayerSpec, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	layer, ok := p.layers[id]
	return layer, ok
}

// Layers returns all layers in add order.
func (p *MemoryProvider) Layers() []LayerSpec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]LayerSpec, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.layers[id])
	}
	return out
}
