package api

import "time"

// Auth Types
type SignUpRequest struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type PasswordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type Session struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

// AuthUser is the identity record kept by the auth service, distinct from
// the public profile row.
type AuthUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	AppMetadata  map[string]interface{} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	CreatedAt    time.Time              `json:"created_at"`
	LastSignInAt *time.Time             `json:"last_sign_in_at,omitempty"`
}

// Profile mirrors the profiles table
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CoverURL  string    `json:"cover_url,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Website   string    `json:"website,omitempty"`
	Location  string    `json:"location,omitempty"`
	IsBanned  bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Website   *string `json:"website,omitempty"`
	Location  *string `json:"location,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	CoverURL  *string `json:"cover_url,omitempty"`
}

// Post Types
type Post struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Content   string     `json:"content"`
	MediaURL  string     `json:"media_url,omitempty"`
	MediaType string     `json:"media_type,omitempty"` // image, video
	GroupID   *string    `json:"group_id,omitempty"`
	PageID    *string    `json:"page_id,omitempty"`
	Privacy   string     `json:"privacy,omitempty"` // public, friends, only_me
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Author    *Profile   `json:"author,omitempty"`
	Reactions []Reaction `json:"post_reactions,omitempty"`
	Comments  []Count    `json:"comments,omitempty"`
}

type NewPost struct {
	UserID    string  `json:"user_id"`
	Content   string  `json:"content"`
	MediaURL  string  `json:"media_url,omitempty"`
	MediaType string  `json:"media_type,omitempty"`
	GroupID   *string `json:"group_id,omitempty"`
	PageID    *string `json:"page_id,omitempty"`
	Privacy   string  `json:"privacy,omitempty"`
}

// Count is the shape of an embedded aggregate such as comments(count)
type Count struct {
	Count int `json:"count"`
}

// Reaction Types
const (
	ReactionLike  = "like"
	ReactionLove  = "love"
	ReactionHaha  = "haha"
	ReactionWow   = "wow"
	ReactionSad   = "sad"
	ReactionAngry = "angry"
)

// ReactionTypes lists the accepted reactions in display order
var ReactionTypes = []string{ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry}

type Reaction struct {
	ID        string    `json:"id,omitempty"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Comment Types
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Profile  `json:"author,omitempty"`
}

type NewComment struct {
	PostID   string  `json:"post_id"`
	UserID   string  `json:"user_id"`
	ParentID *string `json:"parent_id,omitempty"`
	Content  string  `json:"content"`
}

// Story Types
type Story struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MediaURL  string    `json:"media_url"`
	MediaType string    `json:"media_type"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Author    *Profile  `json:"author,omitempty"`
}

type NewStory struct {
	UserID    string    `json:"user_id"`
	MediaURL  string    `json:"media_url"`
	MediaType string    `json:"media_type"`
	Caption   string    `json:"caption,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StoryView struct {
	ID       string    `json:"id,omitempty"`
	StoryID  string    `json:"story_id"`
	ViewerID string    `json:"viewer_id"`
	ViewedAt time.Time `json:"viewed_at,omitempty"`
	Viewer   *Profile  `json:"viewer,omitempty"`
}

// Video Types
type Video struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Duration     float64   `json:"duration"`
	ViewsCount   int       `json:"views_count"`
	CreatedAt    time.Time `json:"created_at"`
	Author       *Profile  `json:"author,omitempty"`
}

type NewVideo struct {
	UserID      string  `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	VideoURL    string  `json:"video_url"`
	Duration    float64 `json:"duration,omitempty"`
}

type WatchHistory struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	VideoID   string    `json:"video_id"`
	Progress  float64   `json:"progress"`
	WatchedAt time.Time `json:"watched_at"`
	Video     *Video    `json:"video,omitempty"`
}

// Group Types
type Group struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CoverURL     string    `json:"cover_url,omitempty"`
	Privacy      string    `json:"privacy"` // public, private
	CreatedBy    string    `json:"created_by"`
	MembersCount int       `json:"members_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewGroup struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy"`
	CreatedBy   string `json:"created_by"`
}

type GroupMember struct {
	ID       string    `json:"id,omitempty"`
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"` // admin, member
	JoinedAt time.Time `json:"joined_at,omitempty"`
	Profile  *Profile  `json:"profile,omitempty"`
}

// Page Types
type Page struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	CreatedBy      string    `json:"created_by"`
	FollowersCount int       `json:"followers_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type NewPage struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	CreatedBy   string `json:"created_by"`
}

type PageFollower struct {
	ID        string    `json:"id,omitempty"`
	PageID    string    `json:"page_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Friendship Types
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipDeclined = "declined"
)

type Friendship struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FriendID  string    `json:"friend_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *Profile  `json:"user,omitempty"`
	Friend    *Profile  `json:"friend,omitempty"`
}

// Other returns the profile on the far side of the friendship from userID
func (f *Friendship) Other(userID string) *Profile {
	if f.UserID == userID {
		return f.Friend
	}
	return f.User
}

// Messaging Types
type Conversation struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name,omitempty"`
	IsGroup      bool                      `json:"is_group"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
	Participants []ConversationParticipant `json:"conversation_participants,omitempty"`
}

type ConversationParticipant struct {
	ID             string    `json:"id,omitempty"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	JoinedAt       time.Time `json:"joined_at,omitempty"`
	Profile        *Profile  `json:"profile,omitempty"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	MediaURL       string    `json:"media_url,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
	Sender         *Profile  `json:"sender,omitempty"`
}

type NewMessage struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	MediaURL       string `json:"media_url,omitempty"`
}

// Notification Types
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Type      string    `json:"type"` // reaction, comment, friend_request, message, mention
	Content   string    `json:"content"`
	PostID    *string   `json:"post_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
	Actor     *Profile  `json:"actor,omitempty"`
}

// Report Types
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

type Report struct {
	ID         string     `json:"id"`
	ReporterID string     `json:"reporter_id"`
	TargetType string     `json:"target_type"` // post, comment, user
	TargetID   string     `json:"target_id"`
	Reason     string     `json:"reason"`
	Details    string     `json:"details,omitempty"`
	Status     string     `json:"status"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Reporter   *Profile   `json:"reporter,omitempty"`
}

type NewReport struct {
	ReporterID string `json:"reporter_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
	Details    string `json:"details,omitempty"`
}

// PageResult is a slice of rows plus the total reported by the backend
type PageResult[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
