package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"amora/internal/screening/models"
	"amora/internal/screening/service/overlay"
	"amora/internal/screening/service/resolver"
	"amora/internal/screening/service/session"
	attemptstore "amora/internal/screening/store/attempt"
	"amora/internal/screening/store/lock"
	quizstore "amora/internal/screening/store/quizconfig"
	rulestore "amora/internal/screening/store/rules"
	statestore "amora/internal/screening/store/state"
	"amora/pkg/requestcontext"

	id "amora/pkg/domain"
)

type allowVerifier struct{}

func (allowVerifier) IsVerified(context.Context, id.UserID) (bool, string, error) {
	return true, "verified", nil
}

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	locker *lock.MemoryLocker
	user   id.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.user = id.NewUserID()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	configs := quizstore.NewInMemoryStore()
	configs.Put(&models.QuizConfigVersion{
		Version:         1,
		AudienceSegment: models.SegmentAll,
		Status:          models.ConfigStatusActive,
		Phases: []models.Phase{
			{ID: models.Phase1, Questions: []models.Question{
				{ID: "q_1", Text: "How do you usually resolve disagreements?", Answers: []models.AnswerOption{
					{ID: "a_10", Text: "Talk it through", Weight: 0},
					{ID: "a_11", Text: "Walk away", Weight: 2},
				}},
			}},
			{ID: models.Phase4, Questions: []models.Question{
				{ID: "q_2", Text: "Anything else we should know?", Answers: []models.AnswerOption{
					{ID: "a_20", Text: "No", Weight: 0},
				}},
			}},
		},
	})

	res, err := resolver.New(configs, resolver.WithLogger(logger))
	s.Require().NoError(err)
	ovl, err := overlay.New(rulestore.NewInMemoryStore(), overlay.WithLogger(logger))
	s.Require().NoError(err)
	svc, err := session.New(nil, res, ovl,
		statestore.NewInMemoryStore(), attemptstore.NewInMemoryStore(), allowVerifier{},
		session.WithLogger(logger),
		session.WithRand(func(n int) int { return n - 1 }),
	)
	s.Require().NoError(err)

	s.locker = lock.NewMemoryLocker()
	h := New(svc, s.locker, logger)

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithRequestID(r.Context(), "req-test")
			ctx = requestcontext.WithTime(ctx, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(s.router)
}

func (s *HandlerSuite) do(method, path, body string, asUser bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if asUser {
		req = req.WithContext(requestcontext.WithUserID(req.Context(), s.user))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestStartRequiresAuthentication() {
	rec := s.do(http.MethodPost, "/screening/start", "", false)
	s.Equal(http.StatusUnauthorized, rec.Code)

	var body map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("unauthorized", body["error"])
}

func (s *HandlerSuite) TestStartServesSanitizedQuestion() {
	rec := s.do(http.MethodPost, "/screening/start", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ScreeningResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotNil(resp.Question)
	s.Equal("q_1", resp.Question.ID)
	s.Len(resp.Question.Answers, 2)
	s.Require().NotNil(resp.Progress)
	s.Equal(1, resp.Progress.Step)
	s.Empty(resp.Outcome)

	s.NotContains(rec.Body.String(), "weight", "answer weights never reach the client")
}

func (s *HandlerSuite) TestSubmitFlowEndsWithOutcome() {
	s.do(http.MethodPost, "/screening/start", "", true)

	rec := s.do(http.MethodPost, "/screening/answers",
		`{"question_id":"q_1","answer_id":"a_10"}`, true)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ScreeningResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotNil(resp.Question)
	s.Equal("q_2", resp.Question.ID, "empty middle phases are skipped")

	rec = s.do(http.MethodPost, "/screening/answers",
		`{"question_id":"q_2","answer_ids":["a_20"]}`, true)
	s.Require().Equal(http.StatusOK, rec.Code, "terminal outcomes are plain responses")

	resp = ScreeningResponse{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Nil(resp.Question)
	s.Equal(string(models.OutcomeApproved), resp.Outcome)
	s.NotEmpty(resp.Message)
}

func (s *HandlerSuite) TestSubmitValidation() {
	s.do(http.MethodPost, "/screening/start", "", true)

	s.Run("missing answers", func() {
		rec := s.do(http.MethodPost, "/screening/answers", `{"question_id":"q_1"}`, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed body", func() {
		rec := s.do(http.MethodPost, "/screening/answers", `{"question_id":`, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("wrong question", func() {
		rec := s.do(http.MethodPost, "/screening/answers",
			`{"question_id":"q_99","answer_id":"a_10"}`, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestConcurrentRequestConflicts() {
	release, err := s.locker.Acquire(context.Background(), s.user)
	s.Require().NoError(err)
	defer release()

	rec := s.do(http.MethodPost, "/screening/start", "", true)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestStatusEndpoint() {
	rec := s.do(http.MethodGet, "/screening/status", "", true)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(session.StateNotStarted, resp.State)

	s.do(http.MethodPost, "/screening/start", "", true)
	rec = s.do(http.MethodGet, "/screening/status", "", true)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(session.StateInProgress, resp.State)
	s.Require().NotNil(resp.Progress)
	s.Equal("phase_1", resp.Progress.Phase)
}

func (s *HandlerSuite) TestStartWithSegmentHint() {
	rec := s.do(http.MethodPost, "/screening/start", `{"audience_segment":"MALE"}`, true)
	s.Equal(http.StatusOK, rec.Code, "hint falls back to the ALL config")

	rec = s.do(http.MethodPost, "/screening/start", `{"audience_segment":"BOGUS"}`, true)
	s.Equal(http.StatusBadRequest, rec.Code)
}
