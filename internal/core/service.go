package core

import (
	"sync"

	"github.com/google/uuid"
)

// Service holds the dashboard session state: the current table, the parsed
// GeoJSON collection, the chosen identifier columns, and the manual
// placement target. State lives for the lifetime of the process; nothing
// is persisted.
//
// Uploads are superseding: each parse request receives a token, and a
// completion only installs its result if its token is still the latest
// request of that kind. A slow parse that loses the race gets
// ErrSuperseded instead of clobbering newer data.
type Service struct {
	mu sync.RWMutex

	table    *TableData
	geo      *FeatureCollection
	geoIDKey string
	targetID string

	tableToken string
	geoToken   string

	notifier Notifier
}

// NewService creates an empty session.
func NewService(notifier Notifier) *Service {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Service{notifier: notifier}
}

// notify sends a fire-and-forget notification.
func (s *Service) notify(sev Severity, msg string) {
	s.notifier.Notify(Notification{Severity: sev, Message: msg})
}

// BeginTableUpload registers a new in-flight table parse and returns its
// token. Any previously issued token is superseded immediately.
func (s *Service) BeginTableUpload() string {
	token := uuid.New().String()
	s.mu.Lock()
	s.tableToken = token
	s.mu.Unlock()
	return token
}

// InstallTable replaces the session's table wholesale with a successfully
// parsed one. The prior table, identifier selection, and placement target
// are discarded; the GeoJSON collection survives so it can be re-linked
// against the new table. Returns ErrSuperseded when the token is stale, in
// which case no state changes.
func (s *Service) InstallTable(token string, table *TableData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.tableToken {
		return ErrSuperseded
	}

	s.table = table
	s.targetID = ""
	return nil
}

// BeginGeoUpload registers a new in-flight GeoJSON parse and returns its
// token.
func (s *Service) BeginGeoUpload() string {
	token := uuid.New().String()
	s.mu.Lock()
	s.geoToken = token
	s.mu.Unlock()
	return token
}

// InstallGeoJSON replaces the session's GeoJSON collection. The previous
// identifier property selection is discarded. Returns ErrSuperseded when
// the token is stale.
func (s *Service) InstallGeoJSON(token string, fc *FeatureCollection) error {
	s.mu.Lock()
	if token != s.geoToken {
		s.mu.Unlock()
		return ErrSuperseded
	}

	s.geo = fc
	s.geoIDKey = ""
	s.targetID = ""
	s.mu.Unlock()

	// Notify without the lock held so a notifier may call back into the
	// service.
	if !fc.HasUniformSchema() {
		s.notify(SeverityWarning,
			"GeoJSON features have differing property schemas; identifier candidates come from the first feature only")
	}
	return nil
}

// SetIDColumn selects the table's identifier column. When a GeoJSON
// identifier property is already chosen, linking runs against the new
// column right away.
func (s *Service) SetIDColumn(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return ErrNoTable
	}
	if !s.table.HasColumn(key) {
		return &UnknownColumnError{Key: key}
	}

	// Handed-out tables are read without the lock, so the selection goes
	// onto a fresh table instead of the shared one.
	s.table = &TableData{
		Columns:     s.table.Columns,
		Records:     s.table.Records,
		IDColumnKey: key,
	}
	return s.relinkLocked()
}

// SetGeoIDKey selects the GeoJSON identifier property and links matching
// Point features into the table.
func (s *Service) SetGeoIDKey(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.geo == nil {
		return 0, &MalformedGeoJSONError{Reason: "no GeoJSON loaded"}
	}

	s.geoIDKey = key
	if err := s.relinkLocked(); err != nil {
		return 0, err
	}

	linked := 0
	if s.table != nil {
		for _, rec := range s.table.Records {
			if rec.HasPosition() {
				linked++
			}
		}
	}
	return linked, nil
}

// relinkLocked merges GeoJSON coordinates into the table when both
// identifier selections are present. Caller holds the write lock.
func (s *Service) relinkLocked() error {
	if s.table == nil || s.table.IDColumnKey == "" || s.geo == nil || s.geoIDKey == "" {
		return nil
	}

	points, err := LinkPoints(s.geo, s.geoIDKey)
	if err != nil {
		return err
	}

	s.table = MergeCoordinates(s.table, points)
	return nil
}

// SelectTarget marks a record as the manual placement target. Only takes
// effect when no GeoJSON overlay is loaded; with an overlay present,
// placement comes from linking, not clicks.
func (s *Service) SelectTarget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return ErrNoTable
	}
	if s.table.IDColumnKey == "" {
		return ErrNoIDColumn
	}

	for _, rec := range s.table.Records {
		if IDString(rec.Values[s.table.IDColumnKey]) == id {
			s.targetID = id
			return nil
		}
	}
	return &RecordNotFoundError{ID: id}
}

// Target returns the current manual placement target, or "".
func (s *Service) Target() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetID
}

// PlaceManually assigns coordinates to the record with the given
// identifier. The placement target is cleared afterwards.
func (s *Service) PlaceManually(id string, lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return ErrNoTable
	}
	next, err := PlaceManually(s.table, id, lat, lng)
	if err != nil {
		return err
	}

	s.table = next
	s.targetID = ""
	return nil
}

// Table returns the current table, or nil. A returned table is never
// written again; every mutation installs a fresh table, so callers may
// read it without further locking.
func (s *Service) Table() *TableData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// GeoJSON returns the current collection, or nil.
func (s *Service) GeoJSON() *FeatureCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geo
}

// HasGeoJSON reports whether a GeoJSON collection is loaded.
func (s *Service) HasGeoJSON() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geo != nil
}

// GeoIDKey returns the chosen GeoJSON identifier property, or "".
func (s *Service) GeoIDKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geoIDKey
}

// Records returns the table rows with search and sort applied, along with
// the filter result so the caller can drive map filtering with the same
// identifier set. Search is coordinate-independent.
func (s *Service) Records(query string, sortSpec SortSpec) ([]Record, FilterResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil, nil, ErrNoTable
	}

	result := Filter(s.table.Records, query, s.table.IDColumnKey)
	records := ApplyFilter(s.table.Records, result, s.table.IDColumnKey)
	records = SortRecords(records, sortSpec)
	return records, result, nil
}

// Export serializes the full unfiltered record set in the requested
// format ("csv" or "xlsx").
func (s *Service) Export(format string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil, "", ErrNoTable
	}

	switch format {
	case "xlsx":
		data, err := ExportWorkbook(s.table)
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	default:
		data, err := ExportCSV(s.table)
		return data, "text/csv", err
	}
}

// Mode returns the dashboard's linking state. The two linked modes are
// mutually exclusive and decided solely by whether GeoJSON is loaded.
func (s *Service) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.table == nil:
		return ModeNoData
	case s.geo != nil && s.geoIDKey != "" && s.table.IDColumnKey != "":
		return ModeLinkedViaGeoJSON
	case s.geo == nil && s.targetID != "":
		return ModeManualPlacementReady
	default:
		return ModeTableLoaded
	}
}
