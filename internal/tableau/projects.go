package tableau

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// projectPageSize is the page size used when listing projects.
const projectPageSize = 100

type pagination struct {
	PageNumber     string `json:"pageNumber"`
	PageSize       string `json:"pageSize"`
	TotalAvailable string `json:"totalAvailable"`
}

type projectsResponse struct {
	Pagination pagination `json:"pagination"`
	Projects   struct {
		Project []struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			ParentProjectID string `json:"parentProjectId"`
		} `json:"project"`
	} `json:"projects"`
}

// Projects lists every project on the site, following pagination.
func (c *Client) Projects(ctx context.Context) ([]core.Scope, error) {
	if !c.SignedIn() {
		return nil, fmt.Errorf("%w: not signed in", ErrAuthentication)
	}

	var scopes []core.Scope
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(projectPageSize))
		q.Set("pageNumber", strconv.Itoa(page))

		var resp projectsResponse
		path := c.restPath(c.apiVersion, "sites/"+c.siteID+"/projects")
		if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}

		for _, p := range resp.Projects.Project {
			scopes = append(scopes, core.Scope{ID: p.ID, Name: p.Name, ParentID: p.ParentProjectID})
		}

		total, err := strconv.Atoi(resp.Pagination.TotalAvailable)
		if err != nil || len(resp.Projects.Project) == 0 || len(scopes) >= total {
			break
		}
	}
	return scopes, nil
}
