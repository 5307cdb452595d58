package mapsync

// TileSource is one entry of the fixed base tile catalog.
type TileSource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
}

// baseCatalog is the fixed set of selectable tile providers.
var baseCatalog = []TileSource{
	{
		ID:          "osm",
		Name:        "OpenStreetMap",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MaxZoom:     19,
	},
	{
		ID:          "osm-topo",
		Name:        "OpenTopoMap",
		URL:         "https://tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors, SRTM | © OpenTopoMap",
		MaxZoom:     17,
	},
	{
		ID:          "satellite",
		Name:        "Esri World Imagery",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri, Maxar, Earthstar Geographics",
		MaxZoom:     18,
	},
	{
		ID:          "carto-light",
		Name:        "Carto Light",
		URL:         "https://basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
	},
	{
		ID:          "carto-dark",
		Name:        "Carto Dark",
		URL:         "https://basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
	},
}

// BaseStyles returns the selectable tile providers in catalog order.
func BaseStyles() []TileSource {
	out := make([]TileSource, len(baseCatalog))
	copy(out, baseCatalog)
	return out
}

// LookupBaseStyle returns the catalog entry for the id.
func LookupBaseStyle(id string) (TileSource, bool) {
	for _, ts := range baseCatalog {
		if ts.ID == id {
			return ts, true
		}
	}
	return TileSource{}, false
}
