package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/vidtube/internal/identity/domain"
	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// identityDoc is the stored document. Field names follow the collection
// written by the previous Node.js service. New identities carry ULID string
// ids; migrated ones keep their ObjectID, exposed as its hex form.
type identityDoc struct {
	ID                    any        `bson:"_id"`
	Username              string     `bson:"username"`
	Email                 string     `bson:"email"`
	FullName              string     `bson:"fullName"`
	Avatar                string     `bson:"avatar"`
	CoverImage            string     `bson:"coverImage,omitempty"`
	Password              string     `bson:"password"`
	RefreshToken          string     `bson:"refreshToken,omitempty"`
	RefreshTokenExpiresAt *time.Time `bson:"refreshTokenExpiresAt,omitempty"`
	CreatedAt             time.Time  `bson:"createdAt"`
	UpdatedAt             time.Time  `bson:"updatedAt"`
}

func toDoc(i domain.Identity) identityDoc {
	d := identityDoc{
		ID:           i.ID,
		Username:     i.Username,
		Email:        i.Email,
		FullName:     i.FullName,
		Avatar:       i.Avatar,
		CoverImage:   i.CoverImage,
		Password:     i.PasswordHash,
		RefreshToken: i.RefreshToken,
		CreatedAt:    i.CreatedAt.UTC(),
		UpdatedAt:    i.UpdatedAt.UTC(),
	}
	if !i.RefreshTokenExpiresAt.IsZero() {
		t := i.RefreshTokenExpiresAt.UTC()
		d.RefreshTokenExpiresAt = &t
	}
	return d
}

func (d identityDoc) toDomain() domain.Identity {
	i := domain.Identity{
		ID:           idString(d.ID),
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		PasswordHash: d.Password,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.RefreshTokenExpiresAt != nil {
		i.RefreshTokenExpiresAt = d.RefreshTokenExpiresAt.UTC()
	}
	return i
}

func idString(v any) string {
	switch id := v.(type) {
	case bson.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}

// idValue matches an identity id whatever type it was stored with. A 24 digit
// hex id may be an ObjectID from the migrated collection.
func idValue(id string) any {
	if len(id) == 24 {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			return bson.D{{Key: "$in", Value: bson.A{oid, id}}}
		}
	}
	return id
}

type identitiesRepo struct {
	coll *mongo.Collection
}

func (r *identitiesRepo) find(ctx context.Context, filter bson.D) (domain.Identity, error) {
	var doc identityDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Identity{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Identity{}, err
	}
	return doc.toDomain(), nil
}

func (r *identitiesRepo) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	return r.find(ctx, bson.D{{Key: "_id", Value: idValue(id)}})
}

func (r *identitiesRepo) GetByUsernameOrEmail(ctx context.Context, username, email string) (domain.Identity, error) {
	filter := orFilter(username, email)
	if filter == nil {
		return domain.Identity{}, store.ErrNotFound
	}
	return r.find(ctx, filter)
}

func (r *identitiesRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter := orFilter(username, email)
	if filter == nil {
		return false, nil
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

// orFilter matches username or email, skipping empty inputs. Returns nil when
// both are empty.
func orFilter(username, email string) bson.D {
	var or bson.A
	if username != "" {
		or = append(or, bson.D{{Key: "username", Value: username}})
	}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}
	if len(or) == 0 {
		return nil
	}
	return bson.D{{Key: "$or", Value: or}}
}

func (r *identitiesRepo) Create(ctx context.Context, i domain.Identity) error {
	_, err := r.coll.InsertOne(ctx, toDoc(i))
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *identitiesRepo) update(ctx context.Context, filter bson.D, update bson.D) (*mongo.UpdateResult, error) {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if mongo.IsDuplicateKeyError(err) {
		return nil, store.ErrAlreadyExists
	}
	return res, err
}

func (r *identitiesRepo) updateByID(ctx context.Context, id string, update bson.D) error {
	res, err := r.update(ctx, bson.D{{Key: "_id", Value: idValue(id)}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func setRefresh(token string, expiresAt time.Time) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "refreshToken", Value: token},
			{Key: "refreshTokenExpiresAt", Value: expiresAt.UTC()},
			{Key: "updatedAt", Value: now()},
		}},
	}
}

func clearRefresh(extra ...bson.E) bson.D {
	set := append(bson.D{{Key: "updatedAt", Value: now()}}, extra...)
	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$unset", Value: bson.D{
			{Key: "refreshToken", Value: ""},
			{Key: "refreshTokenExpiresAt", Value: ""},
		}},
	}
}

func (r *identitiesRepo) SetRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return r.updateByID(ctx, id, setRefresh(token, expiresAt))
}

func (r *identitiesRepo) RotateRefreshToken(ctx context.Context, id, presented, next string, expiresAt time.Time) error {
	if presented == "" {
		return store.ErrStaleToken
	}
	res, err := r.update(ctx,
		bson.D{{Key: "_id", Value: idValue(id)}, {Key: "refreshToken", Value: presented}},
		setRefresh(next, expiresAt))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrStaleToken
	}
	return nil
}

func (r *identitiesRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, clearRefresh())
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id, hash string, revoke bool) error {
	if revoke {
		return r.updateByID(ctx, id, clearRefresh(bson.E{Key: "password", Value: hash}))
	}
	return r.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "password", Value: hash},
		{Key: "updatedAt", Value: now()},
	}}})
}

func (r *identitiesRepo) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	return r.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "fullName", Value: fullName},
		{Key: "email", Value: email},
		{Key: "updatedAt", Value: now()},
	}}})
}

func (r *identitiesRepo) UpdateAvatar(ctx context.Context, id, url string) error {
	return r.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "avatar", Value: url},
		{Key: "updatedAt", Value: now()},
	}}})
}

func (r *identitiesRepo) UpdateCoverImage(ctx context.Context, id, url string) error {
	return r.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "coverImage", Value: url},
		{Key: "updatedAt", Value: now()},
	}}})
}

func (r *identitiesRepo) ClearExpiredRefreshTokens(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.D{
			{Key: "refreshToken", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: ""}}},
			{Key: "refreshTokenExpiresAt", Value: bson.D{{Key: "$lt", Value: at.UTC()}}},
		},
		bson.D{{Key: "$unset", Value: bson.D{
			{Key: "refreshToken", Value: ""},
			{Key: "refreshTokenExpiresAt", Value: ""},
		}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func now() time.Time { return time.Now().UTC() }
