package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Roles a user can hold.  Sign-in always creates RoleUser; admins are
// promoted out of band.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// User mirrors a document in the users collection.  Sub is the subject id
// issued by the external identity provider.  Watchlist is an ordered set of
// movie ids: each id appears at most once.
type User struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Email     string          `bson:"email" json:"email"`
	Name      string          `bson:"name" json:"name"`
	Image     string          `bson:"image" json:"image"`
	Sub       string          `bson:"sub" json:"sub"`
	Role      string          `bson:"role" json:"role"`
	Watchlist []bson.ObjectID `bson:"watchlist" json:"watchlist"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updatedAt"`
	Version   int             `bson:"__v" json:"__v"`
}

// SignInInput is the body of POST /users/signin.
type SignInInput struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// NormalizeEmail trims and lower-cases an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser validates a sign-in payload and builds the record created on a
// first sign-in.  The role is always RoleUser.
func NewUser(in SignInInput, now time.Time) (*User, error) {
	u := &User{
		Email:     NormalizeEmail(in.Email),
		Name:      strings.TrimSpace(in.Name),
		Image:     strings.TrimSpace(in.Image),
		Sub:       strings.TrimSpace(in.Sub),
		Role:      RoleUser,
		Watchlist: []bson.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if u.Sub == "" || u.Email == "" || u.Name == "" || u.Image == "" {
		return nil, fmt.Errorf("%w: Please provide all details.", ErrValidation)
	}
	if !emailRe.MatchString(u.Email) {
		return nil, fmt.Errorf("%w: Please enter a valid email address", ErrValidation)
	}
	return u, nil
}

// IsAdmin reports whether the user may manage the catalog.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// AddToWatchlist appends id unless it is already present.  Adding an existing
// id returns the list unchanged.
func AddToWatchlist(list []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

// RemoveFromWatchlist drops every occurrence of id.  Removing an absent id
// returns an equal list.
func RemoveFromWatchlist(list []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	out := make([]bson.ObjectID, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// WatchlistEntry is the minimal movie projection returned with a watchlist.
type WatchlistEntry struct {
	ID    bson.ObjectID `bson:"_id" json:"_id"`
	Title string        `bson:"title" json:"title"`
	Slug  string        `bson:"slug" json:"slug"`
	Card  string        `bson:"card" json:"card"`
}
