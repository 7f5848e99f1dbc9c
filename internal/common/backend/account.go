package backend

import (
	"context"
	"net/http"
	"strings"

	"rozgar-signup/internal/common/errors"
	httpclient "rozgar-signup/internal/common/http"
	"rozgar-signup/internal/common/validation"
	"rozgar-signup/internal/models"
)

// Register creates an identity. A phone number that is already registered
// comes back as a duplicate registration error.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.IdentityResult, error) {
	var out models.IdentityResult
	resp, err := c.send(ctx, "account.register", httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/auth/register",
		JSON:    req,
		Timeout: c.timeouts.Account,
	}, validation.SchemaIdentity, &out)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		if isDuplicate(resp) {
			return nil, errors.NewDuplicateRegistrationError(resp.Detail())
		}
		return nil, statusError("account service", resp)
	}
	return &out, nil
}

// Login exchanges credentials for an identity token.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*models.IdentityResult, error) {
	var out models.IdentityResult
	resp, err := c.send(ctx, "account.login", httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/auth/login",
		JSON:    creds,
		Timeout: c.timeouts.Account,
	}, validation.SchemaIdentity, &out)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		if resp.Status == http.StatusUnauthorized || resp.Status == http.StatusNotFound {
			return nil, errors.NewInvalidCredentialsError(resp.Detail())
		}
		return nil, statusError("account service", resp)
	}
	return &out, nil
}

// CurrentUser resolves the account behind a stored token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	resp, err := c.send(ctx, "account.me", httpclient.Request{
		Method:  http.MethodGet,
		Path:    "/auth/me",
		Bearer:  token,
		Timeout: c.timeouts.Account,
	}, validation.SchemaCurrentUser, &out)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("account service", resp)
	}
	return &out, nil
}

// CreateProfile stores a worker profile. The call is idempotent: a profile
// that already exists for the user counts as created.
func (c *Client) CreateProfile(ctx context.Context, token string, profile models.WorkerProfile) (*models.ProfileResult, error) {
	var out models.ProfileResult
	resp, err := c.send(ctx, "profile.create", httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/workers/profile",
		JSON:    profile,
		Bearer:  token,
		Timeout: c.timeouts.Profile,
	}, validation.SchemaProfile, &out)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		detail := resp.Detail()
		if (resp.Status == http.StatusBadRequest || resp.Status == http.StatusConflict) &&
			strings.Contains(strings.ToLower(detail), "already exists") {
			return &models.ProfileResult{Message: detail}, nil
		}
		return nil, statusError("worker profile service", resp)
	}
	return &out, nil
}
