package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abhisek/vibekids/internal/dashboard"
	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/render"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/server"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
	"github.com/abhisek/vibekids/internal/vibe"
)

// application is everything a command needs, built from the loaded config.
type application struct {
	store    *store.Store
	provider llm.Provider
	quiz     *quiz.Service
	tutor    *tutor.Service
	dash     *dashboard.Service
	recorder *vibe.Recorder
	renderer *render.Renderer
}

// buildApp opens the store and wires the services. Without a configured
// model provider the services still run and answer with canned text.
func buildApp(ctx context.Context) (*application, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	var provider llm.Provider
	llmCfg, err := cfg.LLMProvider()
	if err == nil {
		provider, err = llm.NewProvider(ctx, llmCfg, st.EventRepo(), log)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "AI features will be unavailable.")
		provider = llm.NewMockProvider()
	}

	return &application{
		store:    st,
		provider: provider,
		quiz:     quiz.NewService(st.Stories(), st.Quizzes(), provider, cfg.QuizService(), log),
		tutor:    tutor.NewService(st.Stories(), st.Chat(), provider, log),
		dash: dashboard.NewService(dashboard.Repos{
			Users:    st.Users(),
			Sessions: st.Sessions(),
			Reading:  st.ReadingProgress(),
			Math:     st.MathProgress(),
			Vibes:    st.Vibes(),
			Quizzes:  st.Quizzes(),
		}, log),
		recorder: vibe.NewRecorder(st.Vibes(), log),
		renderer: render.New(cfg.Renderer(), render.ExecRunner, log),
	}, nil
}

func (a *application) Close() error {
	return a.store.Close()
}

func (a *application) serverDeps() server.Deps {
	st := a.store
	return server.Deps{
		Users:           st.Users(),
		Stories:         st.Stories(),
		Sessions:        st.Sessions(),
		ReadingProgress: st.ReadingProgress(),
		MathProgress:    st.MathProgress(),
		Vibes:           st.Vibes(),
		Quiz:            a.quiz,
		Tutor:           a.tutor,
		Dashboard:       a.dash,
		Recorder:        a.recorder,
		Renderer:        a.renderer,
		Ping:            st.DB().PingContext,
	}
}

func (a *application) now() time.Time {
	return time.Now().UTC()
}

func (a *application) screenDeps(userID string) screens.Deps {
	st := a.store
	return screens.Deps{
		UserID:          userID,
		Stories:         st.Stories(),
		Sessions:        st.Sessions(),
		ReadingProgress: st.ReadingProgress(),
		MathProgress:    st.MathProgress(),
		Vibes:           st.Vibes(),
		Recorder:        a.recorder,
		Quiz:            a.quiz,
		Tutor:           a.tutor,
		Dashboard:       a.dash,
		Reading:         cfg.ReadingTracker(),
		Now:             a.now,
	}
}
