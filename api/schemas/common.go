package schemas

import (
	"time"
)

// -- Session Schemas --

// SessionCredentials holds the ephemeral tokens scraped from a live page.
// They are only as fresh as the page they came from and must be re-extracted
// after any full navigation.
type SessionCredentials struct {
	// UserID is the numeric account identifier recovered from the session cookie.
	UserID string `json:"user_id"`
	// CSRFToken is the anti-forgery token required by all write endpoints.
	CSRFToken string `json:"csrf_token"`
	Jazoest   string `json:"jazoest,omitempty"`
	LSD       string `json:"lsd,omitempty"`
	// CollectionID is the base64 opaque identifier of the account's friends
	// collection, derived from UserID.
	CollectionID string `json:"collection_id,omitempty"`
	// ProfileID is the numeric id of the profile being viewed. Falls back to
	// UserID when the current URL carries no numeric segment.
	ProfileID string `json:"profile_id,omitempty"`
	// CookieHeader is the raw cookie string of the page the credentials came
	// from, forwarded on every API request.
	CookieHeader string    `json:"-"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// Complete reports whether the credentials carry everything the API clients
// need before any network call is attempted.
func (s SessionCredentials) Complete() bool {
	return s.UserID != "" && s.CSRFToken != ""
}

// -- Graph Item Schemas --

// Friend is a single entry from the account's friends collection.
type Friend struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// Post is a single timeline story with whatever fields the defensive parser
// managed to recover.
type Post struct {
	ID         string `json:"id"`
	Text       string `json:"text,omitempty"`
	AuthorID   string `json:"author_id,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	MediaURL   string `json:"media_url,omitempty"`
	URL        string `json:"url,omitempty"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}

// Comment is a single comment attached to a post.
type Comment struct {
	ID         string `json:"id"`
	PostID     string `json:"post_id"`
	AuthorID   string `json:"author_id,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	Text       string `json:"text,omitempty"`
}

// ReactionType is the feedback kind attached to a reaction.
type ReactionType string

const (
	ReactionLike  ReactionType = "LIKE"
	ReactionLove  ReactionType = "LOVE"
	ReactionWow   ReactionType = "WOW"
	ReactionHaha  ReactionType = "HAHA"
	ReactionAngry ReactionType = "ANGRY"
	ReactionCare  ReactionType = "CARE"
	ReactionSad   ReactionType = "SAD"
	// ReactionUnknown marks a feedback id the client has no mapping for.
	ReactionUnknown ReactionType = "UNKNOWN"
)

// Reaction is a single actor's reaction on a post.
type Reaction struct {
	PostID    string       `json:"post_id"`
	ActorID   string       `json:"actor_id"`
	ActorName string       `json:"actor_name,omitempty"`
	Type      ReactionType `json:"type"`
}

// Share is a single reshare of a post.
type Share struct {
	PostID    string `json:"post_id"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"`
}

// PostEngagement bundles a post with the interactions collected for it.
type PostEngagement struct {
	Post      Post       `json:"post"`
	Comments  []Comment  `json:"comments"`
	Reactions []Reaction `json:"reactions"`
	Shares    []Share    `json:"shares"`
}

// -- Pagination Schemas --

// PageInfo carries the cursor state returned with each page of a connection.
type PageInfo struct {
	EndCursor   string `json:"end_cursor"`
	HasNextPage bool   `json:"has_next_page"`
}

// -- Engagement Schemas --

// EngagementRecord is the per-friend interaction tally produced by the merge.
type EngagementRecord struct {
	FriendID   string `json:"friend_id"`
	FriendName string `json:"friend_name"`
	Reactions  int    `json:"reactions"`
	Comments   int    `json:"comments"`
	Shares     int    `json:"shares"`
	// ReactionBreakdown counts the friend's reactions per reaction type.
	ReactionBreakdown map[string]int `json:"reaction_breakdown,omitempty"`
	// LastEngagement is the creation time (unix seconds) of the newest post
	// the friend interacted with. Zero when the friend never engaged.
	LastEngagement int64 `json:"last_engagement,omitempty"`
	Score          int   `json:"score"`
}

// EngagementSummary aggregates a full merge result for reporting.
type EngagementSummary struct {
	Friends        int `json:"friends"`
	ActiveCount    int `json:"active_count"`
	SilentCount    int `json:"silent_count"`
	TotalReactions int `json:"total_reactions"`
	TotalComments  int `json:"total_comments"`
	TotalShares    int `json:"total_shares"`
	TotalScore     int `json:"total_score"`
	HighestScore   int `json:"highest_score"`
	// EngagementRate is the fraction of friends with a non-zero score.
	EngagementRate    float64        `json:"engagement_rate"`
	ReactionBreakdown map[string]int `json:"reaction_breakdown,omitempty"`
	// TopEngagers holds the highest-scoring records, best first.
	TopEngagers []EngagementRecord `json:"top_engagers,omitempty"`
}

// EngagementReport bundles the full ranked record list with its summary.
// This is the payload the engagement collection ultimately exports.
type EngagementReport struct {
	Summary EngagementSummary  `json:"summary"`
	Friends []EngagementRecord `json:"friends"`
}

// -- Progress Schemas --

// RunPhase labels the lifecycle stage a long-running operation is in.
type RunPhase string

const (
	PhaseIdle      RunPhase = "IDLE"
	PhaseRunning   RunPhase = "RUNNING"
	PhasePaused    RunPhase = "PAUSED"
	PhaseStopping  RunPhase = "STOPPING"
	PhaseCompleted RunPhase = "COMPLETED"
	PhaseFailed    RunPhase = "FAILED"
)

// ProgressUpdate is a point-in-time snapshot of a long-running operation,
// broadcast so every attached consumer can render the same numbers.
type ProgressUpdate struct {
	RunID     string    `json:"run_id"`
	Phase     RunPhase  `json:"phase"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}
