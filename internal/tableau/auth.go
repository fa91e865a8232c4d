package tableau

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

type signInRequest struct {
	Credentials struct {
		TokenName   string `json:"personalAccessTokenName"`
		TokenSecret string `json:"personalAccessTokenSecret"`
		Site        struct {
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
	} `json:"credentials"`
}

type signInResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID         string `json:"id"`
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"credentials"`
}

type serverInfoResponse struct {
	ServerInfo struct {
		ProductVersion struct {
			Value string `json:"value"`
			Build string `json:"build"`
		} `json:"productVersion"`
		RestAPIVersion string `json:"restApiVersion"`
	} `json:"serverInfo"`
}

// discoverVersion asks the server for its REST API version.
func (c *Client) discoverVersion(ctx context.Context) error {
	var info serverInfoResponse
	if err := c.do(ctx, http.MethodGet, c.restPath(discoveryAPIVersion, "serverinfo"), nil, nil, &info); err != nil {
		return fmt.Errorf("failed to get server info: %w", err)
	}
	if info.ServerInfo.RestAPIVersion == "" {
		return fmt.Errorf("server info did not include a REST API version")
	}
	c.apiVersion = info.ServerInfo.RestAPIVersion
	c.logger.Debug("using server REST API version",
		slog.String("version", c.apiVersion),
		slog.String("product", info.ServerInfo.ProductVersion.Value))
	return nil
}

// SignIn authenticates with the personal access token. Any failure here is
// reported wrapped in ErrAuthentication.
func (c *Client) SignIn(ctx context.Context) error {
	if c.cfg.TokenName == "" || c.cfg.TokenSecret == "" {
		return fmt.Errorf("%w: personal access token name and secret are required", ErrAuthentication)
	}

	if c.apiVersion == "" {
		if err := c.discoverVersion(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}

	var req signInRequest
	req.Credentials.TokenName = c.cfg.TokenName
	req.Credentials.TokenSecret = c.cfg.TokenSecret
	req.Credentials.Site.ContentURL = c.cfg.Site

	var resp signInResponse
	if err := c.do(ctx, http.MethodPost, c.restPath(c.apiVersion, "auth/signin"), nil, req, &resp); err != nil {
		if errors.Is(err, ErrAuthentication) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if resp.Credentials.Token == "" {
		return fmt.Errorf("%w: sign-in response did not include a token", ErrAuthentication)
	}

	c.token = resp.Credentials.Token
	c.siteID = resp.Credentials.Site.ID
	c.logger.Info("signed in to tableau",
		slog.String("site", c.cfg.Site),
		slog.String("api_version", c.apiVersion))
	return nil
}

// SignOut ends the session. Signing out without a session is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, c.restPath(c.apiVersion, "auth/signout"), nil, nil, nil)
	c.token = ""
	c.siteID = ""
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
