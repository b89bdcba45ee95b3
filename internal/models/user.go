package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
	// bcrypt refuses longer input
	MaxPasswordBytes = 72
	MaxBioLength      = 300
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]+$`)

// User is a FlexBase account. Followers and Following are kept symmetric:
// B is in A.Following exactly when A is in B.Followers.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	DisplayName  string             `bson:"displayName" json:"displayName"`
	Bio          string             `bson:"bio" json:"bio"`
	AvatarURL    string             `bson:"avatarUrl" json:"avatarUrl"`

	Followers []primitive.ObjectID `bson:"followers" json:"-"`
	Following []primitive.ObjectID `bson:"following" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsFollowedBy reports whether id is in the user's followers set
func (u *User) IsFollowedBy(id primitive.ObjectID) bool {
	return containsID(u.Followers, id)
}

// IsFollowing reports whether the user follows id
func (u *User) IsFollowing(id primitive.ObjectID) bool {
	return containsID(u.Following, id)
}

// Summary returns the compact author view attached to posts and comments
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserSummary is the identity embedded in notifications and comment payloads
type UserSummary struct {
	ID          primitive.ObjectID `json:"id"`
	Username    string             `json:"username"`
	DisplayName string             `json:"displayName"`
	AvatarURL   string             `json:"avatarUrl"`
}

// Profile is the public view of a user with relationship counts
type Profile struct {
	*User
	FollowerCount  int   `json:"followerCount"`
	FollowingCount int   `json:"followingCount"`
	PostCount      int64 `json:"postCount"`
	IsFollowing    bool  `json:"isFollowing"`
	IsSelf         bool  `json:"isSelf"`
}

// NormalizeUsername lowercases and trims a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks length and allowed characters of a normalized username
func ValidateUsername(username string) string {
	switch {
	case len(username) < MinUsernameLength:
		return "username must be at least 3 characters"
	case len(username) > MaxUsernameLength:
		return "username must be at most 30 characters"
	case !usernamePattern.MatchString(username):
		return "username may only contain letters, numbers, underscores and dots"
	}
	return ""
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
