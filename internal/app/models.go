package app

import (
	"time"
)

// ==========================================
// ROLES AND STATUSES
// ==========================================

const (
	RoleUser      = "user"
	RoleSeller    = "seller"
	RoleEditor    = "editor"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
)

const (
	CommentStatusActive  = "active"  // visible
	CommentStatusPending = "pending" // reported, awaiting moderation
	CommentStatusHidden  = "hidden"  // hidden by a moderator
	CommentStatusDeleted = "deleted" // soft-deleted, terminal
)

const (
	ReportStatusPending   = "pending"
	ReportStatusReviewing = "reviewing"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

const (
	ReportTypePost    = "post"
	ReportTypeComment = "comment"
	ReportTypeUser    = "user"
	ReportTypeTour    = "tour"
)

const (
	TourStatusActive   = "active"
	TourStatusPaused   = "paused"
	TourStatusArchived = "archived"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

const (
	NFTStatusMinted      = "minted"
	NFTStatusTransferred = "transferred"
	NFTStatusBurned      = "burned"
)

var reportReasons = map[string]bool{
	"spam":          true,
	"harassment":    true,
	"inappropriate": true,
	"misinformation": true,
	"copyright":     true,
	"scam":          true,
	"other":         true,
}

var badgeLevels = map[string]bool{
	"bronze":    true,
	"silver":    true,
	"gold":      true,
	"platinum":  true,
	"legendary": true,
}

var badgeTypes = map[string]bool{
	"explorer":    true,
	"storyteller": true,
	"foodie":      true,
	"photographer": true,
	"guide":       true,
	"pioneer":     true,
}

// ==========================================
// ENTITIES
// ==========================================

type User struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"size:80;uniqueIndex;not null"`
	Email        string `json:"email" gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"size:255;not null"`
	FullName     string `json:"full_name" gorm:"size:120"`
	Bio          string `json:"bio"`
	AvatarURL    string `json:"avatar_url"`
	Location     string `json:"location" gorm:"size:120"`
	Language     string `json:"language" gorm:"size:10;default:'vi'"`
	Role         string `json:"role" gorm:"size:20;default:'user';index"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
	IsVerified   bool   `json:"is_verified" gorm:"default:false"`

	Points int `json:"points" gorm:"not null;default:0"`
	Level  int `json:"level" gorm:"not null;default:1"`

	// Embedded membership lists. Every mutation runs inside a row-locked
	// transaction so concurrent toggles never lose elements.
	Badges     []string `json:"badges" gorm:"serializer:json"`
	Bookmarks  []int64  `json:"bookmarks" gorm:"serializer:json"`
	LikedPosts []int64  `json:"liked_posts" gorm:"serializer:json"`
	Following  []int64  `json:"following" gorm:"serializer:json"`
	Followers  []int64  `json:"followers" gorm:"serializer:json"`

	SocialLinks map[string]string `json:"social_links" gorm:"serializer:json"`

	LastCheckInAt *time.Time `json:"last_check_in_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) FollowerCount() int  { return len(u.Followers) }
func (u *User) FollowingCount() int { return len(u.Following) }

type Post struct {
	ID            int64    `json:"id" gorm:"primaryKey"`
	AuthorID      int64    `json:"author_id" gorm:"index;not null"`
	Title         string   `json:"title" gorm:"size:255;not null"`
	Slug          string   `json:"slug" gorm:"size:300;uniqueIndex"`
	Excerpt       string   `json:"excerpt" gorm:"size:500"`
	Content       string   `json:"content"`
	ContentType   string   `json:"content_type" gorm:"size:20;default:'markdown'"`
	Category      string   `json:"category" gorm:"size:50;index"`
	Tags          []string `json:"tags" gorm:"serializer:json"`
	FeaturedImage string   `json:"featured_image"`
	Images        []string `json:"images" gorm:"serializer:json"`

	LocationName string  `json:"location_name" gorm:"size:200"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Difficulty   string  `json:"difficulty" gorm:"size:20"`

	Status      string     `json:"status" gorm:"size:20;default:'draft';index"`
	IsFeatured  bool       `json:"is_featured" gorm:"default:false"`
	ReadingTime int        `json:"reading_time" gorm:"default:1"`
	PublishedAt *time.Time `json:"published_at"`

	ViewsCount    int `json:"views_count" gorm:"not null;default:0"`
	LikesCount    int `json:"likes_count" gorm:"not null;default:0"`
	CommentsCount int `json:"comments_count" gorm:"not null;default:0"`
	SharesCount   int `json:"shares_count" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Comment struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	PostID   int64  `json:"post_id" gorm:"index;not null"`
	AuthorID int64  `json:"author_id" gorm:"index;not null"`
	ParentID *int64 `json:"parent_id" gorm:"index"`
	Content  string `json:"content" gorm:"not null"`
	Language string `json:"language" gorm:"size:10;default:'vi'"`

	// Nesting level: 0 for top-level, parent.Level+1 for replies.
	Level  int    `json:"level" gorm:"not null;default:0"`
	Status string `json:"status" gorm:"size:20;default:'active';index"`

	LikesCount   int `json:"likes_count" gorm:"not null;default:0"`
	RepliesCount int `json:"replies_count" gorm:"not null;default:0"`

	IsFlagged  bool   `json:"is_flagged" gorm:"default:false"`
	FlagReason string `json:"flag_reason" gorm:"size:50"`
	IsEdited   bool   `json:"is_edited" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Tour struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	SellerID    int64  `json:"seller_id" gorm:"index;not null"`
	Title       string `json:"title" gorm:"size:255;not null"`
	Slug        string `json:"slug" gorm:"size:300;uniqueIndex"`
	Description string `json:"description"`
	Category    string `json:"category" gorm:"size:50;index"`
	Location    string `json:"location" gorm:"size:200"`

	DurationDays    int     `json:"duration_days" gorm:"default:1"`
	MinParticipants int     `json:"min_participants" gorm:"default:1"`
	MaxParticipants int     `json:"max_participants" gorm:"default:20"`
	PricePerPerson  float64 `json:"price_per_person" gorm:"not null"`
	Discount        float64 `json:"discount" gorm:"default:0"` // percent, 0..100
	Currency        string  `json:"currency" gorm:"size:10;default:'VND'"`

	Itinerary  []string `json:"itinerary" gorm:"serializer:json"`
	Inclusions []string `json:"inclusions" gorm:"serializer:json"`
	Exclusions []string `json:"exclusions" gorm:"serializer:json"`
	Images     []string `json:"images" gorm:"serializer:json"`

	Rating        float64 `json:"rating" gorm:"default:0"`
	RatingsCount  int     `json:"ratings_count" gorm:"not null;default:0"`
	ViewsCount    int     `json:"views_count" gorm:"not null;default:0"`
	BookingsCount int     `json:"bookings_count" gorm:"not null;default:0"`

	Status string `json:"status" gorm:"size:20;default:'active';index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Booking struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	TourID       int64     `json:"tour_id" gorm:"index;not null"`
	UserID       int64     `json:"user_id" gorm:"index;not null"`
	StartDate    time.Time `json:"start_date"`
	Participants int       `json:"participants" gorm:"not null"`
	TotalPrice   float64   `json:"total_price" gorm:"not null"`
	Currency     string    `json:"currency" gorm:"size:10;default:'VND'"`
	Status       string    `json:"status" gorm:"size:20;default:'pending';index"`
	ContactPhone string    `json:"contact_phone" gorm:"size:30"`
	Notes        string    `json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Report struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	ReporterID  int64  `json:"reporter_id" gorm:"index;not null"`
	TargetType  string `json:"target_type" gorm:"size:20;index;not null"`
	TargetID    int64  `json:"target_id" gorm:"index;not null"`
	Reason      string `json:"reason" gorm:"size:50;not null"`
	Description string `json:"description"`
	Priority    string `json:"priority" gorm:"size:20;default:'normal'"`

	Status          string     `json:"status" gorm:"size:20;default:'pending';index"`
	AssigneeID      *int64     `json:"assignee_id"`
	ResolvedByID    *int64     `json:"resolved_by_id"`
	ResolutionNotes string     `json:"resolution_notes"`
	ResolvedAt      *time.Time `json:"resolved_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the report reached a final state. Terminal
// reports reject any further transition.
func (r *Report) IsTerminal() bool {
	return r.Status == ReportStatusResolved || r.Status == ReportStatusDismissed
}

type NFT struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	OwnerID    int64  `json:"owner_id" gorm:"index;not null"`
	TokenID    string `json:"token_id" gorm:"size:64;uniqueIndex"`
	Contract   string `json:"contract" gorm:"size:100"`
	BadgeType  string `json:"badge_type" gorm:"size:50;index;not null"`
	BadgeLevel string `json:"badge_level" gorm:"size:20;not null"`
	Rarity     string `json:"rarity" gorm:"size:20"`
	ImageURL   string `json:"image_url"`
	Status     string `json:"status" gorm:"size:20;default:'minted';index"`

	MintedAt  time.Time `json:"minted_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivityLog is the append-only audit trail of significant actions.
// Mirrored to Mongo when a secondary sink is configured.
type ActivityLog struct {
	ID         int64     `json:"id" bson:"-" gorm:"primaryKey"`
	UserID     int64     `json:"user_id" bson:"user_id" gorm:"index"`
	Action     string    `json:"action" bson:"action" gorm:"size:50;index"`
	TargetType string    `json:"target_type" bson:"target_type" gorm:"size:20"`
	TargetID   int64     `json:"target_id" bson:"target_id"`
	Detail     string    `json:"detail" bson:"detail"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" gorm:"index"`
}
