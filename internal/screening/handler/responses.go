package handler

import (
	"time"

	"amora/internal/screening/service/session"
)

// AnswerView is the client-facing shape of an answer option. Weights are
// scoring internals and are never serialized.
type AnswerView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type QuestionView struct {
	ID                    string       `json:"id"`
	Text                  string       `json:"text"`
	AllowMultiple         bool         `json:"allow_multiple"`
	MinSelectionsRequired int          `json:"min_selections_required,omitempty"`
	Answers               []AnswerView `json:"answers"`
}

type ProgressView struct {
	Step       int    `json:"step"`
	TotalSteps int    `json:"total_steps"`
	Phase      string `json:"phase"`
}

// ScreeningResponse is returned by both start and answer submission: either
// the next question with progress, or a terminal outcome. Always 200.
type ScreeningResponse struct {
	Question      *QuestionView `json:"question,omitempty"`
	Progress      *ProgressView `json:"progress,omitempty"`
	Outcome       string        `json:"outcome,omitempty"`
	Message       string        `json:"message,omitempty"`
	CooldownUntil *time.Time    `json:"cooldown_until,omitempty"`
}

func FromResult(r *session.Result) ScreeningResponse {
	resp := ScreeningResponse{
		Outcome:       string(r.Outcome),
		Message:       r.Message,
		CooldownUntil: r.CooldownUntil,
	}
	if r.Question != nil {
		view := &QuestionView{
			ID:                    string(r.Question.ID),
			Text:                  r.Question.Text,
			AllowMultiple:         r.Question.AllowMultiple,
			MinSelectionsRequired: r.MinSelectionsRequired,
			Answers:               make([]AnswerView, 0, len(r.Question.Answers)),
		}
		for _, a := range r.Question.Answers {
			view.Answers = append(view.Answers, AnswerView{ID: string(a.ID), Text: a.Text})
		}
		resp.Question = view
		resp.Progress = &ProgressView{
			Step:       r.Progress.Step,
			TotalSteps: r.Progress.TotalSteps,
			Phase:      string(r.Progress.Phase),
		}
	}
	return resp
}

type StatusResponse struct {
	State         string        `json:"state"`
	Outcome       string        `json:"outcome,omitempty"`
	Progress      *ProgressView `json:"progress,omitempty"`
	CooldownUntil *time.Time    `json:"cooldown_until,omitempty"`
	Attempts      int           `json:"attempts"`
}

func FromStatus(s *session.Status) StatusResponse {
	resp := StatusResponse{
		State:         s.State,
		Outcome:       string(s.Outcome),
		CooldownUntil: s.CooldownUntil,
		Attempts:      s.Attempts,
	}
	if s.Progress != nil {
		resp.Progress = &ProgressView{
			Step:       s.Progress.Step,
			TotalSteps: s.Progress.TotalSteps,
			Phase:      string(s.Progress.Phase),
		}
	}
	return resp
}
