package tableau

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/leapstack-labs/leapexpose/internal/testutil"
	"github.com/leapstack-labs/leapexpose/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer emulates the subset of the Tableau API the client uses.
type fakeServer struct {
	t        *testing.T
	projects []map[string]string
	graphql  func(w http.ResponseWriter, req graphQLRequest)

	signIns  atomic.Int32
	signOuts atomic.Int32
	pages    atomic.Int32
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/2.4/serverinfo", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"serverInfo": map[string]any{
				"productVersion": map[string]string{"value": "2024.2"},
				"restApiVersion": "3.23",
			},
		})
	})

	mux.HandleFunc("POST /api/3.23/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		f.signIns.Add(1)
		var req signInRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		if req.Credentials.TokenSecret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]any{"error": map[string]string{
				"code": "401001", "summary": "Signin Error", "detail": "invalid token",
			}})
			return
		}
		assert.Equal(f.t, "sunstate", req.Credentials.Site.ContentURL)
		writeJSON(w, map[string]any{"credentials": map[string]any{
			"token": "tok-1",
			"site":  map[string]string{"id": "site-1", "contentUrl": "sunstate"},
			"user":  map[string]string{"id": "user-1"},
		}})
	})

	mux.HandleFunc("POST /api/3.23/auth/signout", func(w http.ResponseWriter, r *http.Request) {
		f.signOuts.Add(1)
		assert.Equal(f.t, "tok-1", r.Header.Get("X-Tableau-Auth"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/3.23/sites/site-1/projects", func(w http.ResponseWriter, r *http.Request) {
		f.pages.Add(1)
		assert.Equal(f.t, "tok-1", r.Header.Get("X-Tableau-Auth"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		start := (page - 1) * size
		end := min(start+size, len(f.projects))
		var chunk []map[string]string
		if start < len(f.projects) {
			chunk = f.projects[start:end]
		}
		writeJSON(w, map[string]any{
			"pagination": map[string]string{
				"pageNumber":     strconv.Itoa(page),
				"pageSize":       strconv.Itoa(size),
				"totalAvailable": strconv.Itoa(len(f.projects)),
			},
			"projects": map[string]any{"project": chunk},
		})
	})

	mux.HandleFunc("POST /api/metadata/graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Tableau-Auth") != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req graphQLRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.graphql(w, req)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeServer, secret string) *Client {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	return New(Config{
		ServerURL:   srv.URL + "/",
		Site:        "sunstate",
		TokenName:   "ci",
		TokenSecret: secret,
		RateLimit:   1000,
		RateBurst:   100,
	}, testutil.NewTestLogger(t))
}

func TestSignIn(t *testing.T) {
	f := &fakeServer{}
	c := newTestClient(t, f, "secret")

	require.NoError(t, c.SignIn(context.Background()))
	assert.True(t, c.SignedIn())
	assert.Equal(t, "3.23", c.APIVersion())

	require.NoError(t, c.SignOut(context.Background()))
	assert.False(t, c.SignedIn())
	assert.Equal(t, int32(1), f.signOuts.Load())

	// second sign-out is a no-op
	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, int32(1), f.signOuts.Load())
}

func TestSignIn_Rejected(t *testing.T) {
	c := newTestClient(t, &fakeServer{}, "wrong")

	err := c.SignIn(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "invalid token")
	assert.False(t, c.SignedIn())
}

func TestSignIn_MissingToken(t *testing.T) {
	c := New(Config{ServerURL: "http://127.0.0.1:0"}, nil)

	err := c.SignIn(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestProjects_Paginates(t *testing.T) {
	f := &fakeServer{}
	for i := range 250 {
		parent := ""
		if i > 0 {
			parent = "p0"
		}
		f.projects = append(f.projects, map[string]string{
			"id":              "p" + strconv.Itoa(i),
			"name":            "Project " + strconv.Itoa(i),
			"parentProjectId": parent,
		})
	}
	c := newTestClient(t, f, "secret")
	require.NoError(t, c.SignIn(context.Background()))

	scopes, err := c.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, scopes, 250)
	assert.Equal(t, int32(3), f.pages.Load())
	assert.True(t, scopes[0].IsRoot())
	assert.Equal(t, core.Scope{ID: "p249", Name: "Project 249", ParentID: "p0"}, scopes[249])
}

func TestProjects_RequiresSignIn(t *testing.T) {
	c := newTestClient(t, &fakeServer{}, "secret")

	_, err := c.Projects(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestQueryContent(t *testing.T) {
	f := &fakeServer{}
	f.graphql = func(w http.ResponseWriter, req graphQLRequest) {
		assert.Contains(t, req.Query, "workbooks(filter: {projectNameWithin: $projects})")
		assert.Equal(t, []any{"Production", "Ops"}, req.Variables["projects"])
		writeJSON(w, map[string]any{
			"data": map[string]any{
				"workbooks": []map[string]any{
					{
						"name":           "Sales Report!",
						"vizportalUrlId": "42",
						"projectName":    "Production",
						"upstreamTables": []map[string]any{{"fullName": "[PROD_REPORTING].[SALES].[ORDERS]"}, {"fullName": nil}},
						"owner":          map[string]any{"name": "Ann", "email": nil},
					},
				},
			},
		})
	}
	c := newTestClient(t, f, "secret")
	require.NoError(t, c.SignIn(context.Background()))

	result, err := c.QueryContent(context.Background(), core.KindWorkbook, []string{"Production", "Ops"})
	require.NoError(t, err)
	assert.Equal(t, core.KindWorkbook, result.Kind)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Equal(t, "Sales Report!", core.StringValue(item.Name))
	assert.Equal(t, "42", core.StringValue(item.VizportalURLID))
	require.Len(t, item.UpstreamTables, 2)
	assert.Equal(t, "[PROD_REPORTING].[SALES].[ORDERS]", core.StringValue(item.UpstreamTables[0].FullName))
	assert.Nil(t, item.UpstreamTables[1].FullName)
	require.NotNil(t, item.Owner)
	assert.Nil(t, item.Owner.Email)
}

func TestQueryContent_ErrorsAreNotFatal(t *testing.T) {
	f := &fakeServer{}
	f.graphql = func(w http.ResponseWriter, _ graphQLRequest) {
		writeJSON(w, map[string]any{
			"data": map[string]any{"publishedDatasources": []any{}},
			"errors": []map[string]any{
				{"message": "Showing partial results. The request exceeded the node limit."},
			},
		})
	}
	c := newTestClient(t, f, "secret")
	require.NoError(t, c.SignIn(context.Background()))

	result, err := c.QueryContent(context.Background(), core.KindDatasource, []string{"Dev"})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "node limit")
}

func TestQueryContent_NullData(t *testing.T) {
	f := &fakeServer{}
	f.graphql = func(w http.ResponseWriter, _ graphQLRequest) {
		writeJSON(w, map[string]any{"data": nil})
	}
	c := newTestClient(t, f, "secret")
	require.NoError(t, c.SignIn(context.Background()))

	result, err := c.QueryContent(context.Background(), core.KindDatasource, []string{"Dev"})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestQueryContent_ExpiredSession(t *testing.T) {
	f := &fakeServer{}
	c := newTestClient(t, f, "secret")
	require.NoError(t, c.SignIn(context.Background()))
	c.token = "stale"

	_, err := c.QueryContent(context.Background(), core.KindDatasource, []string{"Dev"})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestQueryContent_HTTPError(t *testing.T) {
	f := &fakeServer{}
	f.graphql = func(w http.ResponseWriter, _ graphQLRequest) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}
	c := newTestClient(t, f, "secret")
	require.NoError(t, c.SignIn(context.Background()))

	_, err := c.QueryContent(context.Background(), core.KindDatasource, []string{"Dev"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "HTTP 500")
}
