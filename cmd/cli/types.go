package main

import "time"

type userSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type profile struct {
	userSummary
	Email          string `json:"email"`
	Bio            string `json:"bio"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
	PostCount      int64  `json:"postCount"`
	IsFollowing    bool   `json:"isFollowing"`
	IsSelf         bool   `json:"isSelf"`
}

type tag struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type post struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
	Media   struct {
		URL  string `json:"url"`
		Kind string `json:"kind"`
	} `json:"media"`
	Tags         []tag        `json:"tags"`
	Visibility   string       `json:"visibility"`
	CreatedAt    time.Time    `json:"createdAt"`
	LikeCount    int          `json:"likeCount"`
	CommentCount int          `json:"commentCount"`
	Author       *userSummary `json:"author"`
}

type usersResponse struct {
	Users []userSummary `json:"users"`
	Count int           `json:"count"`
}

type profileResponse struct {
	User profile `json:"user"`
}

type postsResponse struct {
	Posts  []post `json:"posts"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type followResponse struct {
	Following     bool `json:"following"`
	FollowerCount int  `json:"followerCount"`
}
