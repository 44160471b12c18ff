package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/vibe"
)

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetUserByName(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Users.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Sessions.

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Sessions.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	respondList(s, w, r, list, err)
}

func validSession(sess *store.Session) error {
	if err := required("userId", sess.UserID); err != nil {
		return err
	}
	switch sess.Type {
	case store.SessionReading, store.SessionMath:
	default:
		return apperr.Invalid("type", "must be reading or math")
	}
	if sess.Duration < 0 {
		return apperr.Invalid("duration", "must not be negative")
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var sess store.Session
	if err := decode(r, &sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.ID = ""
	if sess.StartedAt.IsZero() {
		sess.StartedAt = s.now()
	}
	if err := validSession(&sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Sessions.Create(r.Context(), &sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, userID := sess.ID, sess.UserID
	if err := decode(r, sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.ID, sess.UserID = id, userID
	if err := validSession(sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Sessions.Update(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Reading progress.

func (s *Server) handleListReadingProgress(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.ReadingProgress.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	respondList(s, w, r, list, err)
}

func validReadingProgress(p *store.ReadingProgress) error {
	if err := required("userId", p.UserID); err != nil {
		return err
	}
	if err := required("storyId", p.StoryID); err != nil {
		return err
	}
	switch {
	case p.WordsRead < 0:
		return apperr.Invalid("wordsRead", "must not be negative")
	case p.CurrentPosition < 0:
		return apperr.Invalid("currentPosition", "must not be negative")
	case p.Accuracy < 0 || p.Accuracy > 100:
		return apperr.Invalid("accuracy", "must be between 0 and 100")
	}
	return nil
}

func (s *Server) handleCreateReadingProgress(w http.ResponseWriter, r *http.Request) {
	var p store.ReadingProgress
	if err := decode(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID = ""
	p.UpdatedAt = s.now()
	if err := validReadingProgress(&p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.ReadingProgress.Create(r.Context(), &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateReadingProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.ReadingProgress.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, userID := p.ID, p.UserID
	if err := decode(r, p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID, p.UserID = id, userID
	p.UpdatedAt = s.now()
	if err := validReadingProgress(p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.ReadingProgress.Update(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Math progress.

func (s *Server) handleListMathProgress(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.MathProgress.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	respondList(s, w, r, list, err)
}

func validMathProgress(p *store.MathProgress) error {
	if err := required("userId", p.UserID); err != nil {
		return err
	}
	switch {
	case p.ProblemsAttempted < 0 || p.ProblemsCorrect < 0 || p.Streak < 0:
		return apperr.Invalid("problemsAttempted", "counts must not be negative")
	case p.ProblemsCorrect > p.ProblemsAttempted:
		return apperr.Invalid("problemsCorrect", "must not exceed problemsAttempted")
	case p.CurrentLevel < 1:
		return apperr.Invalid("currentLevel", "must be at least 1")
	}
	return nil
}

func (s *Server) handleCreateMathProgress(w http.ResponseWriter, r *http.Request) {
	p := store.MathProgress{CurrentLevel: 1}
	if err := decode(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID = ""
	p.UpdatedAt = s.now()
	if err := validMathProgress(&p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.MathProgress.Create(r.Context(), &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateMathProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.MathProgress.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, userID := p.ID, p.UserID
	if err := decode(r, p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID, p.UserID = id, userID
	p.UpdatedAt = s.now()
	if err := validMathProgress(p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.MathProgress.Update(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Vibes.

func (s *Server) handleListVibes(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Vibes.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	respondList(s, w, r, list, err)
}

func (s *Server) handleListSessionVibes(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Vibes.ListBySession(r.Context(), chi.URLParam(r, "sessionId"))
	respondList(s, w, r, list, err)
}

type vibeRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Vibe      string `json:"vibe"`
	Notes     string `json:"notes"`
}

// handleRecordVibe answers 204 when the vibe repeats the session's latest.
func (s *Server) handleRecordVibe(w http.ResponseWriter, r *http.Request) {
	var req vibeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.deps.Recorder.Record(r.Context(), req.UserID, req.SessionID, vibe.State(req.Vibe), req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func respondList[T any](s *Server, w http.ResponseWriter, r *http.Request, list []T, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []T{}
	}
	writeJSON(w, http.StatusOK, list)
}
