package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const usersPath = "/api/v1/users"

// SDKClient is a client for the VidTube identity API.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new identity API client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// File is an upload part of a multipart request.
type File struct {
	Name    string
	Content io.Reader
}

// RegisterRequest is the multipart body of POST /api/v1/users/register.
type RegisterRequest struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Avatar     *File
	CoverImage *File
}

// Register creates an account. The avatar is required by the server.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	fields := map[string]string{
		"username": req.Username,
		"email":    req.Email,
		"password": req.Password,
		"fullName": req.FullName,
	}
	files := map[string]*File{}
	if req.Avatar != nil {
		files["avatar"] = req.Avatar
	}
	if req.CoverImage != nil {
		files["coverImage"] = req.CoverImage
	}

	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, usersPath+"/register", bytes.NewReader(body), map[string]string{
		"Content-Type": contentType,
	})
	if err != nil {
		return nil, err
	}

	var env Envelope[User]
	if err := decodeJSON(resp, &env, http.StatusCreated); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Login authenticates and returns a Session holding the issued tokens.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, usersPath+"/login", req)
	if err != nil {
		return nil, err
	}

	var env Envelope[LoginResponse]
	if err := decodeJSON(resp, &env, http.StatusOK); err != nil {
		return nil, err
	}

	s := c.NewSessionFromTokens(env.Data.AccessToken, env.Data.RefreshToken)
	s.user = env.Data.User
	return s, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// spent whether or not the caller keeps the result.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, usersPath+"/refresh-token", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var env Envelope[TokenPair]
	if err := decodeJSON(resp, &env, http.StatusOK); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// AuthenticateWithRefreshToken creates an authenticated session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	pair, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return c.NewSessionFromTokens(pair.AccessToken, pair.RefreshToken), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// The session still performs auto-refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    tokenExpiry(accessToken),
	}
}

func encodeMultipart(fields map[string]string, files map[string]*File) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write part %s: %w", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (c *SDKClient) doJSON(ctx context.Context, method, path string, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doRequest(ctx, method, path, bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
}
