package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/document"
	"github.com/abhisek/vibekids/internal/mathpractice"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/render"
	"github.com/abhisek/vibekids/internal/tutor"
)

// Stories.

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Stories.List(r.Context())
	respondList(s, w, r, list, err)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Stories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleUploadStory accepts a multipart form with a "title" field and a
// "document" file.
func (s *Server) handleUploadStory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, document.MaxUploadBytes+(64<<10))
	if err := r.ParseMultipartForm(document.MaxUploadBytes); err != nil {
		s.writeError(w, r, apperr.Invalid("document", "expected a multipart upload"))
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if err := required("title", title); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, _, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, r, apperr.Invalid("document", "is required"))
		return
	}
	defer f.Close()

	st, err := document.Import(r.Context(), s.deps.Extractor, s.deps.Stories, title, f)
	if errors.Is(err, document.ErrTooLittleText) {
		s.writeError(w, r, apperr.Invalid("document", "has too little text to read"))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// Dashboards.

func (s *Server) handleParentDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Dashboard.Parent(r.Context(), chi.URLParam(r, "userId"), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleChildDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Dashboard.Child(r.Context(), chi.URLParam(r, "userId"), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Chat.

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Tutor.History(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "storyId"))
	respondList(s, w, r, list, err)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req tutor.ChatRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ex, err := s.deps.Tutor.SendChatMessage(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Tutor.ClearHistory(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "storyId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type suggestionRequest struct {
	StoryID         string `json:"storyId"`
	CurrentPosition int    `json:"currentPosition"`
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required("storyId", req.StoryID); err != nil {
		s.writeError(w, r, err)
		return
	}
	line, err := s.deps.Tutor.Suggest(r.Context(), req.StoryID, req.CurrentPosition)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"suggestion": line})
}

// Math.

type mathHelpRequest struct {
	Problem       string          `json:"problem"`
	UserAnswer    json.RawMessage `json:"userAnswer"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	IsCorrect     *bool           `json:"isCorrect"`
}

func (s *Server) handleMathHelp(w http.ResponseWriter, r *http.Request) {
	var req mathHelpRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	userAnswer, ok := scalarString(req.UserAnswer)
	if !ok {
		s.writeError(w, r, apperr.Invalid("userAnswer", "must be a number or a string"))
		return
	}
	correctAnswer, ok := scalarString(req.CorrectAnswer)
	if !ok {
		s.writeError(w, r, apperr.Invalid("correctAnswer", "must be a number or a string"))
		return
	}
	if req.IsCorrect == nil {
		s.writeError(w, r, apperr.Invalid("isCorrect", "must be a boolean"))
		return
	}

	feedback, err := s.deps.Tutor.MathFeedback(r.Context(), tutor.MathFeedbackRequest{
		Problem:       req.Problem,
		UserAnswer:    userAnswer,
		CorrectAnswer: correctAnswer,
		IsCorrect:     *req.IsCorrect,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"feedback": feedback})
}

type problemResponse struct {
	mathpractice.Problem
	Display string `json:"display"`
	Hint    string `json:"hint"`
}

func (s *Server) handleMathProblem(w http.ResponseWriter, r *http.Request) {
	level := mathpractice.MinLevel
	if v := r.URL.Query().Get("level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < mathpractice.MinLevel || n > mathpractice.MaxLevel {
			s.writeError(w, r, apperr.Invalid("level", "must be %d to %d", mathpractice.MinLevel, mathpractice.MaxLevel))
			return
		}
		level = n
	}

	s.rngMu.Lock()
	p := mathpractice.Generate(level, s.rng)
	s.rngMu.Unlock()

	writeJSON(w, http.StatusOK, problemResponse{Problem: p, Display: p.String(), Hint: p.Hint()})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req render.Request
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Renderer.Render(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Quizzes.

type generateQuizRequest struct {
	UserID  string `json:"userId"`
	Section *int   `json:"section"`
	Fresh   bool   `json:"fresh"`
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateQuizRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.deps.Quiz.Generate(r.Context(), quiz.GenerateInput{
		UserID:  req.UserID,
		StoryID: chi.URLParam(r, "storyId"),
		Section: req.Section,
		Fresh:   req.Fresh,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if g.Reused {
		status = http.StatusOK
	}
	writeJSON(w, status, g)
}

type submitQuizRequest struct {
	Answers *[]int `json:"answers"`
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitQuizRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Answers == nil {
		s.writeError(w, r, apperr.Invalid("answers", "must be an array"))
		return
	}
	res, err := s.deps.Quiz.Submit(r.Context(), chi.URLParam(r, "quizId"), *req.Answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuizHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Quiz.History(r.Context(), chi.URLParam(r, "userId"))
	respondList(s, w, r, list, err)
}
