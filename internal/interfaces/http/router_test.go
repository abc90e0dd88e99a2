package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/application/signature"
	"github.com/protwis/signprot/internal/config"
	signdomain "github.com/protwis/signprot/internal/domain/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/interfaces/http/handlers"
	"github.com/protwis/signprot/pkg/errors"
)

type MockSignatureService struct {
	mock.Mock
}

func (m *MockSignatureService) Compute(ctx context.Context, sessionID string, input *signature.ComputeInput) (*signature.ComputeResult, error) {
	args := m.Called(ctx, sessionID, input)
	res, _ := args.Get(0).(*signature.ComputeResult)
	return res, args.Error(1)
}

func (m *MockSignatureService) Match(ctx context.Context, sessionID string, input *signature.MatchInput) (*signature.MatchResult, error) {
	args := m.Called(ctx, sessionID, input)
	res, _ := args.Get(0).(*signature.MatchResult)
	return res, args.Error(1)
}

func (m *MockSignatureService) LastMatch(ctx context.Context, sessionID string) (*signdomain.MatchParams, error) {
	args := m.Called(ctx, sessionID)
	res, _ := args.Get(0).(*signdomain.MatchParams)
	return res, args.Error(1)
}

type MockInteractionService struct {
	mock.Mock
}

func (m *MockInteractionService) Interactions(ctx context.Context, input *interaction.InteractionsInput) (*interaction.InteractionsResult, error) {
	args := m.Called(ctx, input)
	res, _ := args.Get(0).(*interaction.InteractionsResult)
	return res, args.Error(1)
}

func (m *MockInteractionService) Matrix(ctx context.Context, database string) (*interaction.MatrixResult, error) {
	args := m.Called(ctx, database)
	res, _ := args.Get(0).(*interaction.MatrixResult)
	return res, args.Error(1)
}

type RouterTestSuite struct {
	suite.Suite
	sig     *MockSignatureService
	inter   *MockInteractionService
	handler http.Handler
}

func (s *RouterTestSuite) SetupTest() {
	s.sig = new(MockSignatureService)
	s.inter = new(MockInteractionService)
	log := logging.NewNopLogger()
	s.handler = NewRouter(RouterConfig{
		SignatureHandler:   handlers.NewSignatureHandler(s.sig, log),
		InteractionHandler: handlers.NewInteractionHandler(s.inter, log),
		HealthHandler:      handlers.NewHealthHandler("test"),
		Session:            config.SessionConfig{CookieName: "signprot_session"},
		Logger:             log,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	})
}

func (s *RouterTestSuite) do(method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "signprot_session" {
			return c
		}
	}
	return nil
}

func (s *RouterTestSuite) TestComputeThenMatchShareSession() {
	var sid string
	s.sig.On("Compute", mock.Anything, mock.AnythingOfType("string"), &signature.ComputeInput{EntryNames: []string{"adrb2_human"}}).
		Run(func(args mock.Arguments) { sid = args.String(1) }).
		Return(&signature.ComputeResult{OneSided: true, Receptors: []string{"adrb2_human"}}, nil)

	rec := s.do(http.MethodPost, "/api/v1/signature", map[string]interface{}{"entry_names": []string{"adrb2_human"}})
	s.Equal(http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	s.Require().NotNil(cookie)
	s.Equal(cookie.Value, sid)
	s.True(cookie.HttpOnly)

	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(true, body["onesided"])

	cutoff := 0.3
	s.sig.On("Match", mock.Anything, sid, &signature.MatchInput{EntryNames: []string{"adrb1_human"}, Cutoff: &cutoff, Mode: "onesided"}).
		Return(&signature.MatchResult{Mode: signdomain.MatchOneSided, Cutoff: cutoff}, nil)

	rec = s.do(http.MethodPost, "/api/v1/signature/match",
		map[string]interface{}{"entry_names": []string{"adrb1_human"}, "cutoff": 0.3, "mode": "onesided"}, cookie)
	s.Equal(http.StatusOK, rec.Code)
	s.Nil(sessionCookie(rec), "a valid session cookie is kept")
	s.sig.AssertExpectations(s.T())
}

func (s *RouterTestSuite) TestMatchWithoutSignatureIsPreconditionFailed() {
	s.sig.On("Match", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeNoSignature, "no signature in session"))

	rec := s.do(http.MethodPost, "/api/v1/signature/match", map[string]interface{}{"entry_names": []string{"adrb1_human"}})
	s.Equal(http.StatusPreconditionFailed, rec.Code)

	var resp handlers.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(string(errors.ErrCodeNoSignature), resp.Code)
}

func (s *RouterTestSuite) TestLastMatch() {
	s.sig.On("LastMatch", mock.Anything, mock.Anything).Return(nil, nil).Once()
	rec := s.do(http.MethodGet, "/api/v1/signature/match", nil)
	s.Equal(http.StatusNoContent, rec.Code)

	s.sig.On("LastMatch", mock.Anything, mock.Anything).
		Return(&signdomain.MatchParams{EntryNames: []string{"adrb1_human"}, Cutoff: 0.4}, nil).Once()
	rec = s.do(http.MethodGet, "/api/v1/signature/match", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "adrb1_human")
}

func (s *RouterTestSuite) TestErrorMapping() {
	cases := []struct {
		err    error
		status int
	}{
		{errors.New(errors.ErrCodeValidation, "bad"), http.StatusUnprocessableEntity},
		{errors.New(errors.ErrCodeInvalidCutoff, "bad"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeStaleSession, "old"), http.StatusPreconditionFailed},
		{errors.New(errors.ErrCodeDatabaseError, "boom"), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s.sig.ExpectedCalls = nil
		s.sig.On("Match", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)
		rec := s.do(http.MethodPost, "/api/v1/signature/match", map[string]interface{}{"entry_names": []string{"x"}})
		s.Equal(tc.status, rec.Code, tc.err.Error())
		if tc.status >= 500 {
			s.NotContains(rec.Body.String(), "boom")
		}
	}
}

func (s *RouterTestSuite) TestMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/signature", bytes.NewBufferString(`{"entry_names":`))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/signature", map[string]interface{}{"unknown_field": 1})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.sig.AssertNotCalled(s.T(), "Compute", mock.Anything, mock.Anything, mock.Anything)
}

func (s *RouterTestSuite) TestInteractions() {
	s.inter.On("Interactions", mock.Anything, &interaction.InteractionsInput{PDBCodes: []string{"3SN6"}, Effector: "G alpha"}).
		Return(&interaction.InteractionsResult{}, nil)
	rec := s.do(http.MethodPost, "/api/v1/interactions", map[string]interface{}{"pdb_codes": []string{"3SN6"}, "effector": "G alpha"})
	s.Equal(http.StatusOK, rec.Code)

	s.inter.On("Matrix", mock.Anything, "arrestin").Return(&interaction.MatrixResult{Database: "arrestin"}, nil)
	rec = s.do(http.MethodGet, "/api/v1/interactions/matrix?database=arrestin", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"database":"arrestin"`)

	s.inter.On("Matrix", mock.Anything, "gpcr").Return(nil, errors.New(errors.ErrCodeBadRequest, "unknown interaction database"))
	rec = s.do(http.MethodGet, "/api/v1/interactions/matrix?database=gpcr", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestHealthAndMetrics() {
	rec := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Nil(sessionCookie(rec), "probes get no session")

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/readyz", nil).Code)
	s.Equal("# metrics", s.do(http.MethodGet, "/metrics", nil).Body.String())
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/nope", nil).Code)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
