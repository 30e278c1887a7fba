package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"socialcal/internal/model"
)

type publicResponse struct {
	model.PublicEvent
	Liked bool `json:"liked"`
}

type linkResponse struct {
	Linked bool          `json:"linked"`
	Event  eventResponse `json:"event"`
}

type calendarRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type collaboratorRequest struct {
	Email string `json:"email"`
	Edit  bool   `json:"edit"`
}

// handleListPublic returns the catalog of followed sources. ?source
// narrows it to one source.
func (s *Server) handleListPublic(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("source")
	out := make([]publicResponse, 0)
	for _, pe := range s.state.PublicEvents() {
		if src != "" && pe.Source != src {
			continue
		}
		out = append(out, publicResponse{PublicEvent: pe, Liked: s.state.IsLiked(pe.ID)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLinkPublic(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ev, linked, err := s.state.LinkPublicEvent(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if linked {
		status = http.StatusCreated
	}
	writeJSON(w, status, linkResponse{Linked: linked, Event: s.eventDTO(ev)})
}

func (s *Server) handleLikePublic(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	liked, err := s.state.ToggleLike(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *Server) handleDeletePublic(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: s.state.DeletePublicEvent(id)})
}

func (s *Server) handleListCalendars(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Calendars())
}

func (s *Server) handleAddCalendar(w http.ResponseWriter, r *http.Request) {
	var req calendarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	cal, err := s.state.AddCalendar(req.Name, req.Color)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cal)
}

func (s *Server) handleUpdateCalendar(w http.ResponseWriter, r *http.Request) {
	var req calendarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	cal, err := s.state.UpdateCalendar(chi.URLParam(r, "id"), req.Name, req.Color)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (s *Server) handleDeleteCalendar(w http.ResponseWriter, r *http.Request) {
	if err := s.state.DeleteCalendar(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalendarShare(w http.ResponseWriter, r *http.Request) {
	cal, ok := s.state.Calendar(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "calendar not found")
		return
	}
	writeJSON(w, http.StatusOK, s.links.Calendar(cal))
}

func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	var req collaboratorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	cal, err := s.state.AddCollaborator(chi.URLParam(r, "id"), req.Email, req.Edit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Subscriptions())
}

func (s *Server) handleToggleSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sub, err := s.state.ToggleFollow(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleRenameSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	sub, err := s.state.RenameSubscription(id, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
