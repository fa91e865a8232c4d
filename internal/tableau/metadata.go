package tableau

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

const metadataPath = "api/metadata/graphql"

// contentQuery is the metadata query for one content kind; %s is the
// graph field (publishedDatasources or workbooks).
const contentQuery = `query leapexposeContent($projects: [String]) {
  %s(filter: {projectNameWithin: $projects}) {
    name
    vizportalUrlId
    upstreamTables {
      fullName
    }
    projectName
    owner {
      name
      email
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLResponse is a raw metadata API response.
type GraphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []core.QueryError          `json:"errors"`
}

// Query runs a GraphQL query against the metadata API.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any) (*GraphQLResponse, error) {
	if !c.SignedIn() {
		return nil, fmt.Errorf("%w: not signed in", ErrAuthentication)
	}

	var resp GraphQLResponse
	req := graphQLRequest{Query: query, Variables: variables}
	if err := c.do(ctx, http.MethodPost, metadataPath, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("metadata query failed: %w", err)
	}
	return &resp, nil
}

// QueryContent fetches every content item of kind in the named projects.
//
// Errors and warnings reported by the metadata API are logged and returned
// in the result; they do not fail the call. Only transport and
// authentication problems do.
func (c *Client) QueryContent(ctx context.Context, kind core.ContentKind, projects []string) (*core.MetadataResult, error) {
	resp, err := c.Query(ctx, fmt.Sprintf(contentQuery, kind.QueryKey()), map[string]any{"projects": projects})
	if err != nil {
		return nil, err
	}

	result := &core.MetadataResult{Kind: kind, Errors: resp.Errors}
	for _, e := range resp.Errors {
		c.logger.Warn("metadata query reported an error",
			slog.String("kind", string(kind)),
			slog.String("message", e.Message))
	}

	raw, ok := resp.Data[kind.QueryKey()]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result.Items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return result, nil
}
