package host

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitLabCreateBranch(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "secret", r.Header.Get("PRIVATE-TOKEN"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"name":"fixes"}`))
	}))
	defer srv.Close()

	c := NewGitLabClient(srv.URL, "secret", "42")
	require.NoError(t, c.CreateBranch(context.Background(), "fixes", "main"))
	assert.Equal(t, "/api/v4/projects/42/repository/branches", gotPath)
	assert.Equal(t, "fixes", gotBody["branch"])
	assert.Equal(t, "main", gotBody["ref"])
}

func TestGitLabCommitBuildsActions(t *testing.T) {
	var gotPayload commitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc123"}`))
	}))
	defer srv.Close()

	c := NewGitLabClient(srv.URL, "secret", "group/proj")
	files := []File{
		{Path: "src/A.java", Content: []byte("a"), Action: ActionUpdate},
		{Path: "src/B.java", Action: ActionDelete},
	}

	id, err := c.Commit(context.Background(), "fixes", files, "msg")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	assert.Equal(t, "fixes", gotPayload.Branch)
	assert.Equal(t, "msg", gotPayload.CommitMessage)
	require.Len(t, gotPayload.Actions, 2)
	assert.Equal(t, "update", gotPayload.Actions[0].Action)
	assert.Equal(t, "a", gotPayload.Actions[0].Content)
	assert.Equal(t, "delete", gotPayload.Actions[1].Action)
	assert.Empty(t, gotPayload.Actions[1].Content)
}

func TestGitLabCommitFailureIsHostAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewGitLabClient(srv.URL, "secret", "42")
	_, err := c.Commit(context.Background(), "fixes", []File{{Path: "a", Action: ActionUpdate}}, "msg")
	require.ErrorIs(t, err, ErrHostAPI)
}

func TestGitLabCreateMergeRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fixes", body["source_branch"])
		assert.Equal(t, "main", body["target_branch"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"iid":7,"web_url":"https://gitlab.example/mr/7"}`))
	}))
	defer srv.Close()

	c := NewGitLabClient(srv.URL, "secret", "42")
	ref, err := c.CreateMergeRequest(context.Background(), "fixes", "main", "title", "body")
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example/mr/7", ref)
}
