package web

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"socialcal/internal/analytics"
	"socialcal/internal/csvimport"
	"socialcal/internal/filter"
	"socialcal/internal/ics"
	appLog "socialcal/internal/log"
	"socialcal/internal/model"
	"socialcal/internal/recur"
)

type eventResponse struct {
	model.Event
	Color string `json:"color"`
}

type occurrenceResponse struct {
	Key   string        `json:"key"`
	Event eventResponse `json:"event"`
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type importResponse struct {
	Imported int             `json:"imported"`
	Skipped  int             `json:"skipped"`
	Events   []eventResponse `json:"events"`
}

func (s *Server) eventDTO(ev model.Event) eventResponse {
	return eventResponse{Event: ev, Color: s.state.Color(ev)}
}

func (s *Server) eventDTOs(evs []model.Event) []eventResponse {
	out := make([]eventResponse, len(evs))
	for i, ev := range evs {
		out[i] = s.eventDTO(ev)
	}
	return out
}

// handleListEvents returns the events passing the active filter.
// ?all=true bypasses it.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	evs := s.state.Visible()
	if r.URL.Query().Get("all") == "true" {
		evs = s.state.Events()
	}
	writeJSON(w, http.StatusOK, s.eventDTOs(evs))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var draft model.Event
	if err := decodeJSON(w, r, &draft); err != nil {
		writeDomainError(w, err)
		return
	}
	ev, err := s.state.Create(draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.eventDTO(ev))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.state.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, s.eventDTO(ev))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		writeDomainError(w, err)
		return
	}
	ev.ID = chi.URLParam(r, "id")
	updated, err := s.state.Update(ev)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.eventDTO(updated))
}

// handleDeleteEvent is idempotent: an unknown id answers 200 with
// deleted=false.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: s.state.Delete(chi.URLParam(r, "id"))})
}

func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.state.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	s.writeCalendar(w, []model.Event{ev}, ics.Filename(ev.Title))
}

func (s *Server) handleEventShare(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.state.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	links, err := s.links.Event(ev)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// handleExport writes an ICS file. scope is all (default), filtered, or
// calendar together with ?calendar=<id>.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		evs  []model.Event
		name = "events"
	)
	switch scope := q.Get("scope"); scope {
	case "", "all":
		evs = s.state.Events()
	case "filtered":
		evs = s.state.Visible()
	case "calendar":
		id := q.Get("calendar")
		cal, ok := s.state.Calendar(id)
		if !ok {
			writeError(w, http.StatusNotFound, "calendar not found")
			return
		}
		var err error
		if evs, err = s.state.EventsInCalendar(id); err != nil {
			writeDomainError(w, err)
			return
		}
		name = cal.Name
	default:
		writeError(w, http.StatusBadRequest, "unknown export scope "+scope)
		return
	}
	s.writeCalendar(w, evs, ics.Filename(name))
}

func (s *Server) writeCalendar(w http.ResponseWriter, evs []model.Event, filename string) {
	data, err := ics.Export(evs, ics.ExportOptions{Organizer: s.organizer, Now: s.state.Now()})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport accepts a CSV or ICS file, either as the raw body or as the
// multipart field "file". The batch is added only if every parsed event
// is valid.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, name, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		drafts  []model.Event
		skipped int
	)
	if isCalendar(r.Header.Get("Content-Type"), name, body) {
		drafts, err = ics.Parse(body, s.loc)
	} else {
		var res csvimport.Result
		res, err = csvimport.Parse(bytes.NewReader(body), s.loc, s.state.Now())
		drafts, skipped = res.Events, res.Skipped
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.state.Import(drafts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	appLog.Info("import accepted", "file", name, "imported", len(added), "skipped", skipped)
	writeJSON(w, http.StatusCreated, importResponse{
		Imported: len(added),
		Skipped:  skipped,
		Events:   s.eventDTOs(added),
	})
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
		return data, "", errors.Wrap(err, "read body")
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, "", errors.Wrap(err, "parse form")
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.Wrap(err, "missing file field")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrap(err, "read file")
	}
	return data, hdr.Filename, nil
}

func isCalendar(contentType, filename string, body []byte) bool {
	if strings.EqualFold(filepath.Ext(filename), ".ics") {
		return true
	}
	if ct, _, _ := mime.ParseMediaType(contentType); ct == "text/calendar" {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("BEGIN:VCALENDAR"))
}

// handleOccurrences expands the visible events. ?from and ?to (RFC 3339)
// override the default window.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	rng := recur.Window(s.state.Now())
	q := r.URL.Query()
	for key, dst := range map[string]*time.Time{"from": &rng.Start, "to": &rng.End} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+key+": "+err.Error())
			return
		}
		*dst = t
	}

	out := make([]occurrenceResponse, 0)
	for occ := range recur.ExpandAll(s.state.Visible(), rng) {
		out = append(out, occurrenceResponse{
			Key:   occ.Key.String(),
			Event: s.eventDTO(occ.Event),
			Start: occ.Start,
			End:   occ.End,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Filter())
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var c filter.Criteria
	if err := decodeJSON(w, r, &c); err != nil {
		writeDomainError(w, err)
		return
	}
	s.state.SetFilter(c)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	sum := analytics.Summarize(s.state.Visible(), s.state.Now(), s.state.LikedCount(), s.state.FollowedCount())
	writeJSON(w, http.StatusOK, sum)
}
