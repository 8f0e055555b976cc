package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	graphScope = "https://graph.microsoft.com/.default"
	// OAuth2 error code for rejected resource owner credentials
	invalidGrant = "invalid_grant"
)

// tenant is one directory the service signs users into
type tenant struct {
	appID  string
	issuer string
}

// GraphClient talks to the identity provider: password sign-in through the ROPC token
// endpoint and user management through the Graph directory API.
type GraphClient struct {
	baseURL    string
	tokenURL   string
	tenants    map[models.TenantKind]tenant
	httpClient *http.Client
	directory  *http.Client
	logger     *slog.Logger
}

func NewGraphClient(cfg config.IdentityProviderConfig, logger *slog.Logger) *GraphClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	cc := clientcredentials.Config{
		ClientID:     cfg.DirectoryClientID,
		ClientSecret: cfg.DirectoryClientSecret,
		TokenURL:     cfg.DirectoryTokenURL,
		Scopes:       []string{graphScope},
	}
	// The directory client caches its app token until expiry
	directory := cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, httpClient))
	directory.Timeout = timeout

	return &GraphClient{
		baseURL:  strings.TrimRight(cfg.GraphBaseURL, "/"),
		tokenURL: cfg.TokenURL,
		tenants: map[models.TenantKind]tenant{
			models.TenantClient: {appID: cfg.ClientAppID, issuer: cfg.ClientIssuer},
			models.TenantAdmin:  {appID: cfg.AdminAppID, issuer: cfg.AdminIssuer},
		},
		httpClient: httpClient,
		directory:  directory,
		logger:     logger,
	}
}

type graphUserList struct {
	Value []models.ProviderUser `json:"value"`
}

type passwordProfile struct {
	ForceChangePasswordNextSignIn bool   `json:"forceChangePasswordNextSignIn"`
	Password                      string `json:"password"`
}

type objectIdentity struct {
	SignInType       string `json:"signInType"`
	Issuer           string `json:"issuer"`
	IssuerAssignedID string `json:"issuerAssignedId"`
}

type newGraphUser struct {
	AccountEnabled   bool             `json:"accountEnabled"`
	DisplayName      string           `json:"displayName"`
	GivenName        string           `json:"givenName"`
	Surname          string           `json:"surname"`
	Mail             string           `json:"mail"`
	MailNickname     string           `json:"mailNickname"`
	MobilePhone      string           `json:"mobilePhone,omitempty"`
	PasswordPolicies string           `json:"passwordPolicies"`
	PasswordProfile  passwordProfile  `json:"passwordProfile"`
	Identities       []objectIdentity `json:"identities"`
}

// GetUserBySignInName finds the user whose email sign-in identity belongs to the tenant's
// issuer. It returns nil, nil when there is none.
func (g *GraphClient) GetUserBySignInName(ctx context.Context, email string, kind models.TenantKind) (*models.ProviderUser, error) {
	t := g.tenants[kind]
	filter := fmt.Sprintf("identities/any(c:c/issuerAssignedId eq '%s' and c/issuer eq '%s')", odataString(email), odataString(t.issuer))
	return g.findUser(ctx, filter)
}

func (g *GraphClient) getUserByMail(ctx context.Context, email string) (*models.ProviderUser, error) {
	return g.findUser(ctx, fmt.Sprintf("mail eq '%s'", odataString(email)))
}

func (g *GraphClient) findUser(ctx context.Context, filter string) (*models.ProviderUser, error) {
	query := url.Values{}
	query.Set("$filter", filter)
	query.Set("$select", "id,displayName,givenName,surname,accountEnabled")

	var list graphUserList
	if err := g.call(ctx, http.MethodGet, "/users?"+query.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("failed to query directory users: %w", err)
	}
	if len(list.Value) == 0 {
		return nil, nil
	}
	return &list.Value[0], nil
}

// InitiateLogin exchanges the user's credentials for tokens at the tenant's ROPC endpoint.
func (g *GraphClient) InitiateLogin(ctx context.Context, email, password string, kind models.TenantKind) (*models.ProviderToken, error) {
	user, err := g.GetUserBySignInName(ctx, email, kind)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.Validation(models.MsgNoAccountWithEmail)
	}
	if !user.AccountEnabled {
		return nil, models.Validation(models.MsgAccountLockedDefault)
	}

	t := g.tenants[kind]
	ropc := oauth2.Config{
		ClientID: t.appID,
		Endpoint: oauth2.Endpoint{TokenURL: g.tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		Scopes:   []string{"openid", t.appID, "offline_access"},
	}

	token, err := ropc.PasswordCredentialsToken(context.WithValue(ctx, oauth2.HTTPClient, g.httpClient), email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == invalidGrant {
			g.logger.Info("identity provider rejected credentials",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("error_description", retrieveErr.ErrorDescription))
			return nil, models.Validation(models.MsgEmailPasswordWrong)
		}
		// Outages and client misconfiguration must not count toward lockout
		return nil, fmt.Errorf("failed to exchange credentials: %w", err)
	}

	result := &models.ProviderToken{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		result.ExpiresIn = int64(time.Until(token.Expiry).Round(time.Second).Seconds())
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		result.IDToken = idToken
	}
	return result, nil
}

// CreateNewUser creates a directory user with an email sign-in identity for the tenant.
func (g *GraphClient) CreateNewUser(ctx context.Context, reg models.ProviderRegistration, kind models.TenantKind) (*models.ProviderUser, error) {
	existing, err := g.getUserByMail(ctx, reg.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.Validation(models.MsgUserWithEmailExist)
	}

	nickname, _, _ := strings.Cut(reg.Email, "@")
	body := newGraphUser{
		AccountEnabled:   true,
		DisplayName:      strings.TrimSpace(reg.FirstName + " " + reg.LastName),
		GivenName:        reg.FirstName,
		Surname:          reg.LastName,
		Mail:             reg.Email,
		MailNickname:     nickname,
		MobilePhone:      reg.ContactNumber,
		PasswordPolicies: "DisablePasswordExpiration",
		PasswordProfile:  passwordProfile{Password: reg.Password},
		Identities: []objectIdentity{{
			SignInType:       "emailAddress",
			Issuer:           g.tenants[kind].issuer,
			IssuerAssignedID: reg.Email,
		}},
	}

	var created models.ProviderUser
	if err := g.call(ctx, http.MethodPost, "/users", body, &created); err != nil {
		g.logger.Error("failed to create directory user",
			slog.String("email", pkglogger.SanitizedEmail(reg.Email)),
			slog.String("tenant", string(kind)),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to create directory user: %w", err)
	}
	if created.ID == "" {
		return nil, nil
	}
	return &created, nil
}

// ResetPassword sets a new password without forcing a change at next sign-in.
func (g *GraphClient) ResetPassword(ctx context.Context, email, newPassword string, kind models.TenantKind) error {
	return g.patchUser(ctx, email, kind, map[string]interface{}{
		"passwordProfile": passwordProfile{Password: newPassword},
	})
}

// DeactivateUser disables sign-in for the user.
func (g *GraphClient) DeactivateUser(ctx context.Context, email string, kind models.TenantKind) error {
	return g.patchUser(ctx, email, kind, map[string]interface{}{
		"accountEnabled": false,
	})
}

func (g *GraphClient) patchUser(ctx context.Context, email string, kind models.TenantKind, patch map[string]interface{}) error {
	user, err := g.GetUserBySignInName(ctx, email, kind)
	if err != nil {
		return err
	}
	if user == nil {
		return models.Validation(models.MsgNoAccountWithEmail)
	}

	if err := g.call(ctx, http.MethodPatch, "/users/"+url.PathEscape(user.ID), patch, nil); err != nil {
		return fmt.Errorf("failed to update directory user: %w", err)
	}
	return nil
}

// call sends one Graph request with the directory app token and decodes the JSON reply into out
func (g *GraphClient) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.directory.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph %s %s: status=%d body=%s", method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}

// odataString escapes a value for use inside a quoted OData literal
func odataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
