package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/2beens/fittrack/internal/middleware"
	"github.com/2beens/fittrack/internal/tracker"
)

func (s *IntegrationTestSuite) do(method, path, body string, headers map[string]string) (*http.Response, []byte) {
	req, err := http.NewRequestWithContext(context.Background(), method, serverEndpoint+path, strings.NewReader(body))
	s.Require().NoError(err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, respBody
}

func (s *IntegrationTestSuite) TestExerciseLifecycle() {
	resp, body := s.do("POST", "/exercises", `{"name":"Corrida Leve"}`, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var res tracker.Result
	s.Require().NoError(json.Unmarshal(body, &res))
	s.Equal("corrida_leve", res.ExerciseID)

	resp, body = s.do("POST", "/exercises/corrida_leve/completed/increment?amount=3", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	s.JSONEq(`{"id":"corrida_leve","field":"completed","value":3}`, string(body))

	resp, body = s.do("GET", "/exercises/corrida_leve/stats", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var stats tracker.ExerciseStats
	s.Require().NoError(json.Unmarshal(body, &stats))
	s.Equal(3, stats.TotalCompleted)
	s.Equal(1, stats.Streak)

	// persisted in postgres
	var stored string
	s.Require().NoError(s.DB.QueryRow(`SELECT value FROM kv_store WHERE key = $1`, tracker.ExercisesKey).Scan(&stored))
	s.Contains(stored, `"corrida_leve"`)

	resp, _ = s.do("DELETE", "/exercises/corrida_leve", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.do("GET", "/exercises/corrida_leve", "", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestAdminRoutes() {
	resp, _ := s.do("POST", "/sample", "", nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.do("POST", "/sample", "", map[string]string{
		middleware.AdminPasswordHeader: testAdminPassword,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))

	resp, body = s.do("GET", "/stats", "", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var consolidated tracker.ConsolidatedStats
	s.Require().NoError(json.Unmarshal(body, &consolidated))
	s.Equal(30, consolidated.OverallStreak)
	s.Equal(30, consolidated.TotalActiveDays)
}

func (s *IntegrationTestSuite) TestMetricsEndpoint() {
	resp, err := s.httpClient.Get("http://" + serverHost + ":9124/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(body), "fittrack_main_store_ops")
	s.Contains(string(body), "pgxpool_")
}
