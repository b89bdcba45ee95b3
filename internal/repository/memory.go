package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flexbase/flexbase/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store. A single mutex makes every paired
// mutation atomic. It backs tests and APP_ENV=test servers.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[primitive.ObjectID]*models.User
	posts       map[primitive.ObjectID]*models.Post
	collections map[primitive.ObjectID]*models.UserCollection
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[primitive.ObjectID]*models.User),
		posts:       make(map[primitive.ObjectID]*models.Post),
		collections: make(map[primitive.ObjectID]*models.UserCollection),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Users() UserRepository             { return memoryUsers{s} }
func (s *MemoryStore) Posts() PostRepository             { return memoryPosts{s} }
func (s *MemoryStore) Collections() CollectionRepository { return memoryCollections{s} }
func (s *MemoryStore) Ping(ctx context.Context) error    { return ctx.Err() }

// ============================================================================
// USERS
// ============================================================================

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return &DuplicateError{Field: "username"}
		}
		if existing.Email == user.Email {
			return &DuplicateError{Field: "email"}
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (r memoryUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(func(u *models.User) bool { return u.Email == models.NormalizeEmail(email) })
}

func (r memoryUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(func(u *models.User) bool { return u.Username == models.NormalizeUsername(username) })
}

func (r memoryUsers) findOne(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, copyUser(u))
		}
	}
	return users, nil
}

func (r memoryUsers) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var users []*models.User
	for _, u := range r.s.users {
		if strings.Contains(u.Username, q) || strings.Contains(u.Email, q) {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (r memoryUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, update ProfileUpdate) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.AvatarURL != nil {
		u.AvatarURL = *update.AvatarURL
	}
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

func (r memoryUsers) ToggleFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (FollowResult, error) {
	if followerID == targetID {
		return FollowResult{}, ErrSelfFollow
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	follower, ok := s.users[followerID]
	if !ok {
		return FollowResult{}, ErrNotFound
	}
	target, ok := s.users[targetID]
	if !ok {
		return FollowResult{}, ErrNotFound
	}

	following := !target.IsFollowedBy(followerID)
	if following {
		target.Followers = append(target.Followers, followerID)
		if !follower.IsFollowing(targetID) {
			follower.Following = append(follower.Following, targetID)
		}
	} else {
		target.Followers = removeID(target.Followers, followerID)
		follower.Following = removeID(follower.Following, targetID)
	}
	now := s.now()
	target.UpdatedAt, follower.UpdatedAt = now, now

	return FollowResult{
		Following:      following,
		FollowerCount:  len(target.Followers),
		FollowingCount: len(target.Following),
	}, nil
}

func (r memoryUsers) ListFollowers(ctx context.Context, id primitive.ObjectID) ([]*models.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.GetMany(ctx, u.Followers)
}

func (r memoryUsers) ListFollowing(ctx context.Context, id primitive.ObjectID) ([]*models.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.GetMany(ctx, u.Following)
}

// ============================================================================
// POSTS
// ============================================================================

type memoryPosts struct{ s *MemoryStore }

func (r memoryPosts) Create(ctx context.Context, post *models.Post) error {
	if post == nil {
		return ErrInvalidInput
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var coll *models.UserCollection
	if post.Collection != nil {
		c, ok := s.collections[*post.Collection]
		if !ok {
			return ErrNotFound
		}
		coll = c
	}

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := s.now()
	post.CreatedAt, post.UpdatedAt = now, now
	if post.Likes == nil {
		post.Likes = []models.Like{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	if post.Tags == nil {
		post.Tags = []models.Tag{}
	}
	s.posts[post.ID] = copyPost(post)

	if coll != nil {
		coll.Items = append(coll.Items, post.ID)
		coll.UpdatedAt = now
	}
	return nil
}

func (r memoryPosts) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPost(p), nil
}

func (r memoryPosts) Find(ctx context.Context, query PostQuery) ([]*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var posts []*models.Post
	for _, p := range r.s.posts {
		if matchesQuery(p, query) {
			posts = append(posts, copyPost(p))
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID.Hex() > posts[j].ID.Hex()
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	if query.Offset > 0 {
		if query.Offset >= len(posts) {
			return []*models.Post{}, nil
		}
		posts = posts[query.Offset:]
	}
	if limit := ClampLimit(query.Limit); len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (r memoryPosts) CountByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, p := range r.s.posts {
		if p.Owner == owner {
			n++
		}
	}
	return n, nil
}

func (r memoryPosts) Delete(ctx context.Context, id primitive.ObjectID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return ErrNotFound
	}
	if p.Collection != nil {
		if c, ok := s.collections[*p.Collection]; ok {
			c.Items = removeID(c.Items, id)
			c.UpdatedAt = s.now()
		}
	}
	delete(s.posts, id)
	return nil
}

func (r memoryPosts) ToggleLike(ctx context.Context, postID, user primitive.ObjectID) (LikeResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return LikeResult{}, ErrNotFound
	}

	if p.IsLikedBy(user) {
		likes := p.Likes[:0]
		for _, l := range p.Likes {
			if l.User != user {
				likes = append(likes, l)
			}
		}
		p.Likes = likes
		return LikeResult{Liked: false, LikeCount: len(p.Likes)}, nil
	}

	p.Likes = append(p.Likes, models.Like{User: user, CreatedAt: s.now()})
	return LikeResult{Liked: true, LikeCount: len(p.Likes)}, nil
}

func (r memoryPosts) AddComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return 0, ErrNotFound
	}
	comment.Author = nil
	p.Comments = append(p.Comments, comment)
	return len(p.Comments), nil
}

// ============================================================================
// COLLECTIONS
// ============================================================================

type memoryCollections struct{ s *MemoryStore }

func (r memoryCollections) Create(ctx context.Context, c *models.UserCollection) error {
	if c == nil {
		return ErrInvalidInput
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Items == nil {
		c.Items = []primitive.ObjectID{}
	}
	s.collections[c.ID] = copyCollection(c)
	return nil
}

func (r memoryCollections) GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserCollection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.collections[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCollection(c), nil
}

func (r memoryCollections) ListByOwner(ctx context.Context, owner primitive.ObjectID, includePrivate bool) ([]*models.UserCollection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.UserCollection
	for _, c := range r.s.collections {
		if c.Owner == owner && (includePrivate || !c.IsPrivate) {
			out = append(out, copyCollection(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryCollections) Update(ctx context.Context, id primitive.ObjectID, update CollectionUpdate) (*models.UserCollection, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.Description != nil {
		c.Description = *update.Description
	}
	if update.Category != nil {
		c.Category = *update.Category
	}
	if update.IsPrivate != nil {
		c.IsPrivate = *update.IsPrivate
	}
	c.UpdatedAt = s.now()
	return copyCollection(c), nil
}

func (r memoryCollections) Delete(ctx context.Context, id primitive.ObjectID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		return ErrNotFound
	}
	for _, p := range s.posts {
		if p.Collection != nil && *p.Collection == id {
			p.Collection = nil
		}
	}
	delete(s.collections, id)
	return nil
}

func (r memoryCollections) AddItem(ctx context.Context, collectionID, postID primitive.ObjectID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collectionID]
	if !ok {
		return ErrNotFound
	}
	p, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	if c.Contains(postID) {
		return ErrAlreadyInCollection
	}

	now := s.now()
	if p.Collection != nil {
		if prev, ok := s.collections[*p.Collection]; ok {
			prev.Items = removeID(prev.Items, postID)
			prev.UpdatedAt = now
		}
	}
	c.Items = append(c.Items, postID)
	c.UpdatedAt = now
	cid := collectionID
	p.Collection = &cid
	return nil
}

func (r memoryCollections) RemoveItem(ctx context.Context, collectionID, postID primitive.ObjectID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collectionID]
	if !ok {
		return ErrNotFound
	}
	if !c.Contains(postID) {
		return ErrNotInCollection
	}
	c.Items = removeID(c.Items, postID)
	c.UpdatedAt = s.now()
	if p, ok := s.posts[postID]; ok && p.Collection != nil && *p.Collection == collectionID {
		p.Collection = nil
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func matchesQuery(p *models.Post, q PostQuery) bool {
	inScope := false
	for _, scope := range q.Scopes {
		if scopeMatches(p, scope) {
			inScope = true
			break
		}
	}
	if !inScope {
		return false
	}

	if q.Collection != nil && (p.Collection == nil || *p.Collection != *q.Collection) {
		return false
	}
	if category := strings.ToLower(strings.TrimSpace(q.Category)); category != "" {
		if !hasTag(p, func(t models.Tag) bool { return t.Category == category }) {
			return false
		}
	}
	if brand := strings.ToLower(strings.TrimSpace(q.Brand)); brand != "" {
		if !hasTag(p, func(t models.Tag) bool { return t.Category == models.BrandTagCategory && t.Name == brand }) {
			return false
		}
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		inCaption := strings.Contains(strings.ToLower(p.Caption), search)
		if !inCaption && !hasTag(p, func(t models.Tag) bool { return strings.Contains(t.Name, search) }) {
			return false
		}
	}
	return true
}

func scopeMatches(p *models.Post, scope PostScope) bool {
	if scope.Owners != nil && !containsObjectID(scope.Owners, p.Owner) {
		return false
	}
	if len(scope.Visibilities) == 0 {
		return true
	}
	for _, v := range scope.Visibilities {
		if p.Visibility == v {
			return true
		}
	}
	return false
}

func hasTag(p *models.Post, match func(models.Tag) bool) bool {
	for _, t := range p.Tags {
		if match(t) {
			return true
		}
	}
	return false
}

func containsObjectID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Followers = append([]primitive.ObjectID{}, u.Followers...)
	c.Following = append([]primitive.ObjectID{}, u.Following...)
	return &c
}

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.Tags = append([]models.Tag{}, p.Tags...)
	c.Likes = append([]models.Like{}, p.Likes...)
	c.Comments = append([]models.Comment{}, p.Comments...)
	if p.Collection != nil {
		id := *p.Collection
		c.Collection = &id
	}
	return &c
}

func copyCollection(col *models.UserCollection) *models.UserCollection {
	c := *col
	c.Items = append([]primitive.ObjectID{}, col.Items...)
	return &c
}
