package domain

import "time"

// Identity is an account record as stored. It has no JSON tags and must never
// be written to a response; use View.
type Identity struct {
	ID           string // ULID, immutable
	Username     string // lower-case, unique
	Email        string // lower-case, unique
	FullName     string
	Avatar       string // asset URL, required
	CoverImage   string // asset URL, optional
	PasswordHash string // argon2id PHC string, or legacy bcrypt

	// RefreshToken is the fingerprint of the one refresh token that is
	// currently valid for this identity, or empty.
	RefreshToken          string
	RefreshTokenExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IdentityView is the only serializable form of an Identity.
type IdentityView struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View strips credentials from i.
func (i Identity) View() IdentityView {
	return IdentityView{
		ID:         i.ID,
		Username:   i.Username,
		Email:      i.Email,
		FullName:   i.FullName,
		Avatar:     i.Avatar,
		CoverImage: i.CoverImage,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}
