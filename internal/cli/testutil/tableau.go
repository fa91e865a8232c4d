package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

// FakeTableau is an httptest server speaking enough of the Tableau REST and
// metadata APIs for end-to-end command tests. It accepts the token secret
// "secret" and serves fixed projects and content.
type FakeTableau struct {
	*httptest.Server

	// Projects are served from the projects endpoint, in order.
	Projects []map[string]string
	// Content maps a metadata query key to the items it returns.
	Content map[string][]map[string]any

	SignOuts atomic.Int32
}

// NewFakeTableau starts a fake server seeded with a small site: one data
// source and one workbook, both reading from a reference and a source table.
func NewFakeTableau(t *testing.T) *FakeTableau {
	t.Helper()

	f := &FakeTableau{
		Projects: []map[string]string{
			{"id": "p1", "name": "Developer Data Sources"},
			{"id": "p2", "name": "Production"},
			{"id": "p3", "name": "Finance", "parentProjectId": "p2"},
			{"id": "p4", "name": "Archive"},
		},
		Content: map[string][]map[string]any{
			"publishedDatasources": {{
				"name":           "Orders",
				"vizportalUrlId": "11",
				"projectName":    "Developer Data Sources",
				"owner":          map[string]any{"name": "Ana", "email": "ana@example.com"},
				"upstreamTables": []map[string]any{
					{"fullName": "[PROD_ANALYTICS].[MARTS].[ORDERS]"},
				},
			}},
			"workbooks": {{
				"name":           "Sales Report",
				"vizportalUrlId": "42",
				"projectName":    "Finance",
				"owner":          map[string]any{"name": "Bo", "email": nil},
				"upstreamTables": []map[string]any{
					{"fullName": "[PROD_ANALYTICS].[MARTS].[ORDERS]"},
					{"fullName": "[PROD_RAW].[STRIPE].[CHARGES]"},
					{"fullName": "[ORPHAN]"},
				},
			}},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/2.4/serverinfo", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"serverInfo": map[string]any{"restApiVersion": "3.23"}})
	})
	mux.HandleFunc("POST /api/3.23/auth/signin", f.signIn)
	mux.HandleFunc("POST /api/3.23/auth/signout", func(w http.ResponseWriter, _ *http.Request) {
		f.SignOuts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/3.23/sites/site-1/projects", f.projects)
	mux.HandleFunc("POST /api/metadata/graphql", f.graphql)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *FakeTableau) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credentials struct {
			Secret string `json:"personalAccessTokenSecret"`
		} `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credentials.Secret != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{
			"summary": "Signin Error", "detail": "invalid token",
		}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credentials": map[string]any{
		"token": "tok-1",
		"site":  map[string]string{"id": "site-1"},
	}})
}

func (f *FakeTableau) projects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pagination": map[string]string{
			"pageNumber":     "1",
			"pageSize":       "100",
			"totalAvailable": strconv.Itoa(len(f.Projects)),
		},
		"projects": map[string]any{"project": f.Projects},
	})
}

func (f *FakeTableau) graphql(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Tableau-Auth") != "tok-1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	data := map[string]any{}
	for key, items := range f.Content {
		if strings.Contains(req.Query, key+"(") {
			data[key] = items
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
