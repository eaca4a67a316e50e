package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"name": "a1", "state": "waiting", "queues": ["s1"], "provision_streak_count": 3, "provision_streak_type": "success"},
			{"name": "a2", "state": "busy", "queues": ["s1", "s2"]}
		]`))
	}))
	defer server.Close()

	agents, err := NewFetcher(server.URL, testLogger()).Agents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "a1", agents[0].Name)
	assert.Equal(t, 3, agents[0].Streak())
	assert.Equal(t, []string{"s1", "s2"}, agents[1].Queues)
	assert.Equal(t, 0, agents[1].Streak())
}

func TestAgents_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewFetcher(server.URL, testLogger()).Agents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestAgents_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"`))
	}))
	defer server.Close()

	_, err := NewFetcher(server.URL, testLogger()).Agents(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode agent data")
}

func TestAgents_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewFetcher(server.URL, testLogger()).Agents(context.Background())
	assert.Error(t, err)
}
