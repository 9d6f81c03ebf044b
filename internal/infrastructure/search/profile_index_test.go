package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

func TestUpdateBodyCarriesOnlyWrittenFields(t *testing.T) {
	b, err := updateBody(repository.ProfileUpdated{
		ProfileID: "u1",
		Fields:    []string{"avatar_url"},
		Row:       repository.Row{"id": "u1", "avatar_url": "https://store/u1/avatar.jpg", "full_name": "stale"},
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, true, got["doc_as_upsert"])
	assert.Equal(t, map[string]any{"id": "u1", "avatar_url": "https://store/u1/avatar.jpg"}, got["doc"])

	_, err = updateBody(repository.ProfileUpdated{})
	assert.Error(t, err)
}

func TestSearchBodyClampsSize(t *testing.T) {
	assert.Equal(t, 10, searchBody("ann", 0)["size"])
	assert.Equal(t, 10, searchBody("ann", 500)["size"])
	assert.Equal(t, 25, searchBody("ann", 25)["size"])
}

func TestDisabledIndex(t *testing.T) {
	idx := NewProfileIndex(nil, "profiles")
	assert.NoError(t, idx.Apply(context.Background(), repository.ProfileUpdated{ProfileID: "u1"}))
	hits, err := idx.Search(context.Background(), "ann", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func newTestIndex(t *testing.T, status int) *ProfileIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 0, DisableRetry: true})
	require.NoError(t, err)
	return NewProfileIndex(es, "profiles")
}

func TestApplyClassifiesFailures(t *testing.T) {
	ev := repository.ProfileUpdated{
		ProfileID: "u1",
		Fields:    []string{"full_name"},
		Row:       repository.Row{"id": "u1", "full_name": "Ann"},
	}
	tests := []struct {
		name     string
		status   int
		wantErr  bool
		rejected bool
	}{
		{name: "Ok", status: http.StatusOK},
		{name: "Mapping conflict", status: http.StatusBadRequest, wantErr: true, rejected: true},
		{name: "Throttled", status: http.StatusTooManyRequests, wantErr: true},
		{name: "Unavailable", status: http.StatusServiceUnavailable, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestIndex(t, tt.status).Apply(context.Background(), ev)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.rejected, errors.Is(err, ErrRejected))
		})
	}

	err := newTestIndex(t, http.StatusOK).Apply(context.Background(), repository.ProfileUpdated{})
	assert.ErrorIs(t, err, ErrRejected)
}
