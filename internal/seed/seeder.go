// Package seed fills a store with realistic collector data for development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/models"
	"github.com/flexbase/flexbase/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DevPassword is the password every seeded account gets
const DevPassword = "flexbase123"

var usernameChars = regexp.MustCompile(`[^a-z0-9_.]`)

// Catalog per collection category: brands and item words used for captions
// and tags
var catalog = map[models.CollectionCategory]struct {
	brands []string
	items  []string
}{
	models.CategorySneakers: {[]string{"nike", "adidas", "new balance", "asics"}, []string{"jordan 1", "dunk low", "yeezy 350", "990v3", "gel-lyte"}},
	models.CategoryWatches:  {[]string{"rolex", "omega", "seiko", "casio"}, []string{"submariner", "speedmaster", "skx007", "g-shock"}},
	models.CategoryCards:    {[]string{"topps", "panini", "pokemon"}, []string{"rookie card", "charizard", "prizm silver", "chrome refractor"}},
	models.CategoryToys:     {[]string{"lego", "funko", "hot toys"}, []string{"millennium falcon", "pop vinyl", "iron man figure"}},
	models.CategoryApparel:  {[]string{"supreme", "stussy", "carhartt"}, []string{"box logo hoodie", "vintage tee", "chore coat"}},
	models.CategoryArt:      {[]string{"kaws", "banksy"}, []string{"companion", "signed print"}},
}

// Options controls the amount of generated data
type Options struct {
	Users int
	Posts int
	// Seed makes runs reproducible when non-zero
	Seed int64
}

// Result counts what SeedDev created
type Result struct {
	Users       int
	Posts       int
	Collections int
	Follows     int
	Likes       int
	Comments    int
}

// Seeder handles database seeding operations
type Seeder struct {
	store repository.Store
	rng   *rand.Rand
}

// NewSeeder creates a new seeder instance
func NewSeeder(store repository.Store, seed int64) *Seeder {
	if seed == 0 {
		seed = rand.Int63()
	}
	// gofakeit's global source drives names and sentences
	_ = gofakeit.Seed(seed)
	return &Seeder{store: store, rng: rand.New(rand.NewSource(seed))}
}

// SeedDev creates users with collections, a follow graph, and posts with
// likes and comments
func (s *Seeder) SeedDev(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users < 2 {
		return nil, errors.New("at least 2 users are required")
	}
	res := &Result{}

	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(ctx, opts.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	res.Users = len(users)

	logger.Log.Info("Creating collections...")
	collections, err := s.seedCollections(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed collections: %w", err)
	}
	res.Collections = len(collections)

	logger.Log.Info("Creating follows...")
	if res.Follows, err = s.seedFollows(ctx, users); err != nil {
		return nil, fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating posts...", zap.Int("count", opts.Posts))
	posts, err := s.seedPosts(ctx, users, collections, opts.Posts)
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}
	res.Posts = len(posts)

	logger.Log.Info("Creating likes and comments...")
	if res.Likes, res.Comments, err = s.seedEngagement(ctx, users, posts); err != nil {
		return nil, fmt.Errorf("failed to seed engagement: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", res.Users),
		zap.Int("posts", res.Posts),
		zap.Int("collections", res.Collections),
		zap.Int("follows", res.Follows),
		zap.Int("likes", res.Likes),
		zap.Int("comments", res.Comments))
	return res, nil
}

func (s *Seeder) seedUsers(ctx context.Context, n int) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DevPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for attempts := 0; len(users) < n; attempts++ {
		if attempts > n*5 {
			return nil, fmt.Errorf("could only create %d unique users", len(users))
		}

		username := fakeUsername()
		user := &models.User{
			Username:     username,
			Email:        username + "@" + strings.ToLower(gofakeit.DomainName()),
			PasswordHash: string(hash),
			DisplayName:  gofakeit.Name(),
			Bio:          truncate(gofakeit.HipsterSentence(), models.MaxBioLength),
			AvatarURL:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		err := s.store.Users().Create(ctx, user)
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// fakeUsername returns a username that passes models.ValidateUsername
func fakeUsername() string {
	name := usernameChars.ReplaceAllString(strings.ToLower(gofakeit.Username()), "")
	name = truncate(name, models.MaxUsernameLength-4)
	return fmt.Sprintf("%s%d", name, gofakeit.Number(100, 999))
}

var collectionNames = []string{"Grails", "Daily rotation", "The vault", "Wishlist", "Finds", "Heat", "Pickups"}

func (s *Seeder) seedCollections(ctx context.Context, users []*models.User) ([]*models.UserCollection, error) {
	var out []*models.UserCollection
	for _, u := range users {
		for i := s.rng.Intn(3); i > 0; i-- {
			category := s.category()
			c := &models.UserCollection{
				Owner:       u.ID,
				Name:        fmt.Sprintf("%s: %s", collectionNames[s.rng.Intn(len(collectionNames))], category),
				Description: truncate(gofakeit.HipsterSentence(), models.MaxCollectionDescriptionLength),
				Category:    category,
				IsPrivate:   s.rng.Intn(5) == 0,
			}
			if err := s.store.Collections().Create(ctx, c); err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) (int, error) {
	follows := 0
	for _, u := range users {
		// Each user follows up to a third of the others
		for _, i := range s.rng.Perm(len(users))[:s.rng.Intn(len(users)/3+1)] {
			target := users[i]
			if target.ID == u.ID {
				continue
			}
			res, err := s.store.Users().ToggleFollow(ctx, u.ID, target.ID)
			if err != nil {
				return follows, err
			}
			if res.Following {
				follows++
			}
		}
	}
	return follows, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []*models.User, collections []*models.UserCollection, n int) ([]*models.Post, error) {
	byOwner := make(map[primitive.ObjectID][]*models.UserCollection)
	for _, c := range collections {
		byOwner[c.Owner] = append(byOwner[c.Owner], c)
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		owner := users[s.rng.Intn(len(users))]
		category := s.category()

		var collectionID *primitive.ObjectID
		if owned := byOwner[owner.ID]; len(owned) > 0 && s.rng.Intn(2) == 0 {
			c := owned[s.rng.Intn(len(owned))]
			category = c.Category
			id := c.ID
			collectionID = &id
		}

		post := s.fakePost(owner.ID, category, collectionID)
		if err := s.store.Posts().Create(ctx, post); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// fakePost builds a post about an item from category. Media points at a
// placeholder image service.
func (s *Seeder) fakePost(owner primitive.ObjectID, category models.CollectionCategory, collection *primitive.ObjectID) *models.Post {
	entry, ok := catalog[category]
	if !ok {
		entry = catalog[models.CategorySneakers]
	}
	brand := entry.brands[s.rng.Intn(len(entry.brands))]
	item := entry.items[s.rng.Intn(len(entry.items))]

	kind := models.MediaImage
	url := fmt.Sprintf("https://picsum.photos/seed/%s/1080/1080", primitive.NewObjectID().Hex())
	if s.rng.Intn(10) == 0 {
		kind = models.MediaVideo
		url = "https://samplelib.com/lib/preview/mp4/sample-5s.mp4"
	}

	visibility := models.VisibilityPublic
	switch roll := s.rng.Intn(10); {
	case roll == 0:
		visibility = models.VisibilityPrivate
	case roll < 3:
		visibility = models.VisibilityFollowers
	}

	caption := fmt.Sprintf("%s %s. %s", brand, item, gofakeit.HipsterSentence())
	return &models.Post{
		Owner:   owner,
		Caption: truncate(caption, models.MaxCaptionLength),
		Media:   models.Media{URL: url, Kind: kind},
		Tags: models.NormalizeTags([]models.Tag{
			{Name: brand, Category: models.BrandTagCategory},
			{Name: item, Category: string(category)},
			{Name: gofakeit.Word()},
		}),
		Collection: collection,
		Visibility: visibility,
	}
}

func (s *Seeder) seedEngagement(ctx context.Context, users []*models.User, posts []*models.Post) (likes, comments int, err error) {
	for _, post := range posts {
		if post.Visibility == models.VisibilityPrivate {
			continue
		}
		for _, i := range s.rng.Perm(len(users))[:s.rng.Intn(len(users)/2+1)] {
			res, err := s.store.Posts().ToggleLike(ctx, post.ID, users[i].ID)
			if err != nil {
				return likes, comments, err
			}
			if res.Liked {
				likes++
			}
		}
		for j := s.rng.Intn(4); j > 0; j-- {
			author := users[s.rng.Intn(len(users))]
			_, err := s.store.Posts().AddComment(ctx, post.ID, models.Comment{
				ID:        primitive.NewObjectID(),
				User:      author.ID,
				Text:      truncate(gofakeit.HipsterSentence(), models.MaxCommentLength),
				CreatedAt: post.CreatedAt.Add(commentDelay(s.rng)),
			})
			if err != nil {
				return likes, comments, err
			}
			comments++
		}
	}
	return likes, comments, nil
}

func (s *Seeder) category() models.CollectionCategory {
	categories := []models.CollectionCategory{
		models.CategorySneakers, models.CategoryWatches, models.CategoryCards,
		models.CategoryToys, models.CategoryApparel, models.CategoryArt,
	}
	return categories[s.rng.Intn(len(categories))]
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return strings.TrimSpace(string(r[:n]))
	}
	return s
}

// commentDelay spreads comments over the three days after a post
func commentDelay(rng *rand.Rand) time.Duration {
	return time.Duration(1+rng.Intn(72*60)) * time.Minute
}
