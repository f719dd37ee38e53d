/*
Package authsdk provides a client SDK for the VidTube identity API.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: unauthenticated operations (register, login, refresh, health)
  - Session: authenticated operations with automatic token refresh

Create an SDKClient and log in to obtain a Session:

	client := authsdk.NewSDKClient("https://api.example.com")

	user, err := client.Register(ctx, authsdk.RegisterRequest{
		Username: "ana",
		Email:    "ana@example.com",
		Password: "secret",
		FullName: "Ana",
		Avatar:   &authsdk.File{Name: "avatar.png", Content: f},
	})

	session, err := client.Login(ctx, authsdk.LoginRequest{Username: "ana", Password: "secret"})

Session methods send the access token as a bearer token. When the token is
about to expire, or the server answers 401, the session spends its refresh
token once to obtain a new pair:

	me, err := session.CurrentUser(ctx)
	err = session.ChangePassword(ctx, "secret", "new-secret")
	err = session.Logout(ctx)

# Refresh Rotation

Every refresh token works exactly once. A Session serializes its own
refreshes, but two Sessions built from the same refresh token race: only one
of them wins and the other gets a 401.

# Errors

Failed calls return *APIError carrying the HTTP status and the message from
the response envelope:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		// username or email taken
	}

The same type is used by the server to write error envelopes (WriteError).
*/
package authsdk
