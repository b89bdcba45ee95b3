package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ApplicationMetrics tracks collector activity: posts, media and social engagement
type ApplicationMetrics struct {
	PostsCreated       *prometheus.CounterVec
	PostsDeleted       prometheus.Counter
	MediaUploadsTotal  *prometheus.CounterVec
	MediaUploadBytes   *prometheus.HistogramVec
	LikesTotal         *prometheus.CounterVec
	CommentsTotal      prometheus.Counter
	FollowsTotal       *prometheus.CounterVec
	CollectionsCreated *prometheus.CounterVec
	AuthAttempts       *prometheus.CounterVec
}

func initializeApplicationMetrics() *ApplicationMetrics {
	return &ApplicationMetrics{
		PostsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexbase_posts_created_total",
				Help: "Total number of posts created",
			},
			[]string{"visibility", "media_kind"},
		),
		PostsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "flexbase_posts_deleted_total",
				Help: "Total number of posts deleted",
			},
		),
		MediaUploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexbase_media_uploads_total",
				Help: "Total number of media uploads",
			},
			[]string{"kind", "status"},
		),
		MediaUploadBytes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flexbase_media_upload_bytes",
				Help:    "Size of accepted media uploads in bytes",
				Buckets: prometheus.ExponentialBuckets(16<<10, 4, 7),
			},
			[]string{"kind"},
		),
		LikesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexbase_likes_total",
				Help: "Total number of like toggles",
			},
			[]string{"action"},
		),
		CommentsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "flexbase_comments_total",
				Help: "Total number of comments added",
			},
		),
		FollowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexbase_follows_total",
				Help: "Total number of follow toggles",
			},
			[]string{"action"},
		),
		CollectionsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexbase_collections_created_total",
				Help: "Total number of collections created",
			},
			[]string{"category", "private"},
		),
		AuthAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexbase_auth_attempts_total",
				Help: "Signup and login attempts by outcome",
			},
			[]string{"kind", "status"},
		),
	}
}

// RecordPostCreated counts a new post
func RecordPostCreated(visibility, mediaKind string) {
	Get().PostsCreated.WithLabelValues(visibility, mediaKind).Inc()
}

func RecordPostDeleted() {
	Get().PostsDeleted.Inc()
}

// RecordMediaUpload counts an upload attempt; size is only observed on success
func RecordMediaUpload(kind string, size int64, err error) {
	m := Get()
	if kind == "" {
		kind = "unknown"
	}
	m.MediaUploadsTotal.WithLabelValues(kind, status(err)).Inc()
	if err == nil {
		m.MediaUploadBytes.WithLabelValues(kind).Observe(float64(size))
	}
}

func RecordLike(liked bool) {
	Get().LikesTotal.WithLabelValues(toggleAction(liked, "like", "unlike")).Inc()
}

func RecordComment() {
	Get().CommentsTotal.Inc()
}

func RecordFollow(following bool) {
	Get().FollowsTotal.WithLabelValues(toggleAction(following, "follow", "unfollow")).Inc()
}

func RecordCollectionCreated(category string, private bool) {
	Get().CollectionsCreated.WithLabelValues(category, strconv.FormatBool(private)).Inc()
}

// RecordAuthAttempt counts a signup or login by outcome
func RecordAuthAttempt(kind string, err error) {
	Get().AuthAttempts.WithLabelValues(kind, status(err)).Inc()
}

// RecordDatabaseOperation records a MongoDB command
func RecordDatabaseOperation(operation, database string, duration time.Duration, err error) {
	m := Get()
	m.DatabaseOperationDuration.WithLabelValues(operation, database).Observe(duration.Seconds())
	m.DatabaseOperationsTotal.WithLabelValues(operation, database, status(err)).Inc()
}

func RecordWebSocketMessage(direction, messageType string) {
	Get().WebSocketMessagesTotal.WithLabelValues(direction, messageType).Inc()
}

func RecordRelayMessage(direction string, err error) {
	Get().RelayMessagesTotal.WithLabelValues(direction, status(err)).Inc()
}

func RecordRateLimitExceeded(endpoint, method string) {
	Get().RateLimitExceededTotal.WithLabelValues(endpoint, method).Inc()
}

func RecordError(code, endpoint string) {
	Get().ErrorsTotal.WithLabelValues(code, endpoint).Inc()
}

func toggleAction(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
