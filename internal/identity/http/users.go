package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/service"
	"github.com/aussiebroadwan/vidtube/pkg/authsdk"
	"github.com/aussiebroadwan/vidtube/pkg/httpx"
	"github.com/aussiebroadwan/vidtube/pkg/slogx"
)

type UsersHandler struct {
	Sessions *service.SessionService
	Accounts *service.AccountService
	Cookies  httpx.CookieOptions

	UploadDir      string
	MaxUploadBytes int64
}

// HandleRegister creates an account.
//
//	@Summary		Register
//	@Description	Creates an account from a multipart form. The avatar image is required, the cover image is optional.
//	@Tags			Users
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			username	formData	string	true	"Username"
//	@Param			email		formData	string	true	"Email"
//	@Param			password	formData	string	true	"Password"
//	@Param			fullName	formData	string	true	"Full name"
//	@Param			avatar		formData	file	true	"Avatar image"
//	@Param			coverImage	formData	file	false	"Cover image"
//	@Success		201			{object}	httpx.Envelope{data=authsdk.User}	"Registered user"
//	@Failure		400			{object}	httpx.Envelope						"Missing or invalid field"
//	@Failure		409			{object}	httpx.Envelope						"Username or email taken"
//	@Failure		502			{object}	httpx.Envelope						"Asset upload failed"
//	@Router			/api/v1/users/register [post].
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var files uploads
	defer files.cleanup()

	if !h.parseMultipart(w, r) {
		return
	}

	avatar, ok := h.saveFile(w, r, &files, "avatar")
	if !ok {
		return
	}
	cover, ok := h.saveFile(w, r, &files, "coverImage")
	if !ok {
		return
	}

	user, err := h.Sessions.Register(r.Context(), service.RegisterInput{
		Username:       r.FormValue("username"),
		Email:          r.FormValue("email"),
		Password:       r.FormValue("password"),
		FullName:       r.FormValue("fullName"),
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, toUser(user), "User registered successfully")
}

// HandleLogin starts a session.
//
//	@Summary		Login
//	@Description	Verifies credentials and returns a new token pair. The tokens are also set as HttpOnly cookies. A login ends any earlier session of the account.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest						true	"Username or email, and password"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.LoginResponse}	"Session"
//	@Failure		400		{object}	httpx.Envelope								"Missing identifier or password"
//	@Failure		401		{object}	httpx.Envelope								"Invalid credentials"
//	@Failure		404		{object}	httpx.Envelope								"User does not exist"
//	@Router			/api/v1/users/login [post].
func (h *UsersHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.Sessions.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, session.Tokens)
	httpx.WriteSuccess(w, http.StatusOK, authsdk.LoginResponse{
		User:         toUser(session.User),
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// HandleRefresh rotates the refresh token.
//
//	@Summary		Refresh access token
//	@Description	Exchanges the refresh token (cookie, or refreshToken in the body) for a new pair. The presented token stops working.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest					false	"Refresh token when no cookie is sent"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.TokenPair}	"New token pair"
//	@Failure		401		{object}	httpx.Envelope							"Missing, invalid, expired or used refresh token"
//	@Failure		404		{object}	httpx.Envelope							"User does not exist"
//	@Router			/api/v1/users/refresh-token [post].
func (h *UsersHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(httpx.RefreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req authsdk.RefreshRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}
		presented = req.RefreshToken
	}

	tokens, err := h.Sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setTokenCookies(w, tokens)
	httpx.WriteSuccess(w, http.StatusOK, authsdk.TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

// HandleLogout ends the session.
//
//	@Summary		Logout
//	@Description	Clears the stored refresh token and both token cookies. Access tokens already issued stay valid until they expire.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope	"Logged out"
//	@Failure		401	{object}	httpx.Envelope	"Invalid or missing access token"
//	@Router			/api/v1/users/logout [post].
func (h *UsersHandler) HandleLogout(w http.ResponseWriter, r *http.Request, user domain.IdentityView) {
	if err := h.Sessions.Logout(r.Context(), user.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.ClearTokenCookie(w, httpx.AccessTokenCookie, h.Cookies)
	httpx.ClearTokenCookie(w, httpx.RefreshTokenCookie, h.Cookies)
	httpx.WriteSuccess(w, http.StatusOK, struct{}{}, "User logged out")
}

// HandleChangePassword replaces the password.
//
//	@Summary		Change password
//	@Description	Replaces the password after checking the old one. Depending on configuration the refresh token is revoked.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"Old and new password"
//	@Success		200		{object}	httpx.Envelope					"Password changed"
//	@Failure		400		{object}	httpx.Envelope					"Missing field"
//	@Failure		401		{object}	httpx.Envelope					"Old password incorrect or invalid access token"
//	@Router			/api/v1/users/change-password [post]
//	@Router			/api/v1/users/update-password [post].
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request, user domain.IdentityView) {
	var req authsdk.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Sessions.ChangePassword(r.Context(), user.ID, service.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.Sessions.RevokeOnPasswordChange {
		httpx.ClearTokenCookie(w, httpx.RefreshTokenCookie, h.Cookies)
	}
	httpx.WriteSuccess(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

// HandleCurrentUser returns the authenticated account.
//
//	@Summary		Current user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=authsdk.User}	"Current user"
//	@Failure		401	{object}	httpx.Envelope						"Invalid or missing access token"
//	@Router			/api/v1/users/current-user [get].
func (h *UsersHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request, user domain.IdentityView) {
	httpx.WriteSuccess(w, http.StatusOK, toUser(user), "Current user fetched successfully")
}

// HandleUpdateAccount updates full name and email.
//
//	@Summary		Update account details
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.UpdateAccountRequest		true	"Full name and email"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.User}	"Updated user"
//	@Failure		400		{object}	httpx.Envelope						"Missing or invalid field"
//	@Failure		409		{object}	httpx.Envelope						"Email taken"
//	@Router			/api/v1/users/update-account [patch].
func (h *UsersHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request, user domain.IdentityView) {
	var req authsdk.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.Accounts.UpdateAccountDetails(r.Context(), user.ID, service.AccountDetailsInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, toUser(updated), "Account details updated successfully")
}

// HandleUpdateAvatar replaces the avatar image.
//
//	@Summary		Update avatar
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			avatar	formData	file								true	"Avatar image"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.User}	"Updated user"
//	@Failure		400		{object}	httpx.Envelope						"Missing file"
//	@Failure		502		{object}	httpx.Envelope						"Asset upload failed"
//	@Router			/api/v1/users/avatar [patch]
//	@Router			/api/v1/users/update-avatar [patch].
func (h *UsersHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request, user domain.IdentityView) {
	h.replaceImage(w, r, user, "avatar", h.Accounts.UpdateAvatar, "Avatar updated successfully")
}

// HandleUpdateCoverImage replaces the cover image.
//
//	@Summary		Update cover image
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			coverImage	formData	file								true	"Cover image"
//	@Success		200			{object}	httpx.Envelope{data=authsdk.User}	"Updated user"
//	@Failure		400			{object}	httpx.Envelope						"Missing file"
//	@Failure		502			{object}	httpx.Envelope						"Asset upload failed"
//	@Router			/api/v1/users/cover-image [patch]
//	@Router			/api/v1/users/update-cover-image [patch].
func (h *UsersHandler) HandleUpdateCoverImage(w http.ResponseWriter, r *http.Request, user domain.IdentityView) {
	h.replaceImage(w, r, user, "coverImage", h.Accounts.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID, localPath string) (domain.IdentityView, error)

func (h *UsersHandler) replaceImage(w http.ResponseWriter, r *http.Request, user domain.IdentityView, field string, update imageUpdater, msg string) {
	var files uploads
	defer files.cleanup()

	if !h.parseMultipart(w, r) {
		return
	}
	path, ok := h.saveFile(w, r, &files, field)
	if !ok {
		return
	}

	updated, err := update(r.Context(), user.ID, path)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, toUser(updated), msg)
}

func (h *UsersHandler) setTokenCookies(w http.ResponseWriter, t domain.TokenPair) {
	httpx.SetTokenCookie(w, httpx.AccessTokenCookie, t.AccessToken, t.AccessTokenExpiresAt, h.Cookies)
	httpx.SetTokenCookie(w, httpx.RefreshTokenCookie, t.RefreshToken, t.RefreshTokenExpiresAt, h.Cookies)
}

// parseMultipart parses a size-limited multipart body. net/http removes the
// form's own temp files once the handler returns.
func (h *UsersHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			authsdk.NewAPIError(http.StatusRequestEntityTooLarge, "upload is too large").WriteError(w)
			return false
		}
		slogx.FromContext(r.Context()).Debug("invalid multipart form", "error", err)
		authsdk.ErrInvalidMultipart.WriteError(w)
		return false
	}
	return true
}

func (h *UsersHandler) saveFile(w http.ResponseWriter, r *http.Request, files *uploads, field string) (string, bool) {
	path, err := files.saveUpload(r, field, h.UploadDir)
	if errors.Is(err, errUnsupportedImage) {
		authsdk.NewAPIError(http.StatusBadRequest, err.Error()).WriteError(w)
		return "", false
	}
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to store upload", "field", field, "error", err)
		authsdk.ErrServerError.WriteError(w)
		return "", false
	}
	return path, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		authsdk.ErrInvalidJSON.WriteError(w)
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		authsdk.ErrInvalidJSON.WriteError(w)
		return false
	}
	return true
}

func toUser(v domain.IdentityView) authsdk.User {
	return authsdk.User{
		ID:         v.ID,
		Username:   v.Username,
		Email:      v.Email,
		FullName:   v.FullName,
		Avatar:     v.Avatar,
		CoverImage: v.CoverImage,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}
