package handlers

import (
	"net/http"

	"github.com/flexbase/flexbase/internal/middleware"
	"github.com/flexbase/flexbase/internal/web"
	"github.com/gin-gonic/gin"
)

// RouteOptions carries the pieces of the router that differ per deployment
type RouteOptions struct {
	// WebSocket upgrades GET /ws; nil leaves the route out
	WebSocket gin.HandlerFunc
	// MediaDir is served at MediaURL when media is stored locally
	MediaDir string
	MediaURL string
	// Optional per-route limiters
	AuthLimiter   gin.HandlerFunc
	UploadLimiter gin.HandlerFunc
}

func orPass(mw gin.HandlerFunc) gin.HandlerFunc {
	if mw != nil {
		return mw
	}
	return func(c *gin.Context) { c.Next() }
}

// RegisterRoutes mounts the API, the pages and the operational endpoints.
// The engine must already carry the error handler.
func (h *Handlers) RegisterRoutes(r *gin.Engine, opts RouteOptions) error {
	tmpl, err := web.Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	requireAuth := middleware.RequireAuth(h.auth)
	optionalAuth := middleware.OptionalAuth(h.auth)
	authLimit := orPass(opts.AuthLimiter)
	uploadLimit := orPass(opts.UploadLimiter)

	r.GET("/health", h.Health)
	r.GET("/metrics", Metrics())
	r.StaticFS("/static", http.FS(web.Static()))
	if opts.MediaDir != "" {
		mediaURL := opts.MediaURL
		if mediaURL == "" {
			mediaURL = "/media"
		}
		r.Static(mediaURL, opts.MediaDir)
	}
	if opts.WebSocket != nil {
		r.GET("/ws", opts.WebSocket)
	}

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", authLimit, h.Signup)
			authGroup.POST("/login", authLimit, h.Login)
			authGroup.POST("/logout", h.Logout)
			authGroup.GET("/me", requireAuth, h.Me)
		}

		users := api.Group("/users")
		{
			users.GET("/search", h.SearchUsers)
			users.PUT("/me", requireAuth, h.UpdateMe)
			users.GET("/:id", optionalAuth, h.GetUser)
			users.POST("/:id/follow", requireAuth, h.ToggleFollow)
			users.GET("/:id/followers", h.GetFollowers)
			users.GET("/:id/following", h.GetFollowing)
			users.GET("/:id/posts", optionalAuth, h.GetUserPosts)
			users.GET("/:id/collections", optionalAuth, h.GetUserCollections)
		}

		collections := api.Group("/collections")
		{
			collections.GET("", requireAuth, h.ListMyCollections)
			collections.POST("", requireAuth, h.CreateCollection)
			collections.GET("/:id", optionalAuth, h.GetCollection)
			collections.PUT("/:id", requireAuth, h.UpdateCollection)
			collections.DELETE("/:id", requireAuth, h.DeleteCollection)
			collections.POST("/:id/items", requireAuth, h.AddCollectionItem)
			collections.DELETE("/:id/items/:postId", requireAuth, h.RemoveCollectionItem)
		}

		posts := api.Group("/posts")
		{
			posts.GET("/feed", requireAuth, h.GetFeed)
			posts.GET("/explore", optionalAuth, h.GetExplore)
			posts.POST("", requireAuth, uploadLimit, h.CreatePost)
			posts.GET("/:id", optionalAuth, h.GetPost)
			posts.DELETE("/:id", requireAuth, h.DeletePost)
			posts.POST("/:id/like", requireAuth, h.ToggleLike)
			posts.POST("/:id/comment", requireAuth, h.AddComment)
		}
	}

	pages := r.Group("/", middleware.HTMLPages(), optionalAuth)
	{
		pages.GET("/", h.HomePage)
		pages.GET("/feed", h.FeedPage)
		pages.GET("/explore", h.ExplorePage)
		pages.GET("/profile/:id", h.ProfilePage)
		pages.POST("/profile/:id/follow", h.FollowAction)
		pages.GET("/collection/:id", h.CollectionPage)
		pages.GET("/post/:id", h.PostPage)
		pages.POST("/post/:id/like", h.LikeAction)
		pages.POST("/post/:id/comment", h.CommentAction)
		pages.POST("/post/:id/delete", h.DeleteAction)
		pages.GET("/create", h.CreatePage)
		pages.POST("/create", uploadLimit, h.CreateAction)
		pages.GET("/login", h.LoginPage)
		pages.POST("/login", authLimit, h.LoginAction)
		pages.GET("/signup", h.SignupPage)
		pages.POST("/signup", authLimit, h.SignupAction)
		pages.POST("/logout", h.LogoutAction)
	}

	return nil
}
