package app

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

type PostInput struct {
	Title         string   `json:"title"`
	Excerpt       string   `json:"excerpt"`
	Content       string   `json:"content"`
	ContentType   string   `json:"content_type"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	FeaturedImage string   `json:"featured_image"`
	Images        []string `json:"images"`
	LocationName  string   `json:"location_name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Difficulty    string   `json:"difficulty"`
	Status        string   `json:"status"`
}

// readingTime estimates minutes at 200 words per minute, never below 1.
func readingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := words / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// CreatePost validates the input, slugs the title and awards the author
// post points in the same transaction.
func (s *Store) CreatePost(authorID int64, in PostInput) (*Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty post title", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: empty post content", ErrInvalidArgument)
	}
	status := in.Status
	if status == "" {
		status = PostStatusDraft
	}
	if status != PostStatusDraft && status != PostStatusPublished {
		return nil, fmt.Errorf("%w: post status %q", ErrInvalidArgument, status)
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "markdown"
	}

	post := &Post{
		AuthorID:      authorID,
		Title:         title,
		Slug:          uniqueSlug(title),
		Excerpt:       strings.TrimSpace(in.Excerpt),
		Content:       in.Content,
		ContentType:   contentType,
		Category:      in.Category,
		Tags:          in.Tags,
		FeaturedImage: in.FeaturedImage,
		Images:        in.Images,
		LocationName:  in.LocationName,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		Difficulty:    in.Difficulty,
		Status:        status,
		ReadingTime:   readingTime(in.Content),
	}
	if status == PostStatusPublished {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		_, err := addPointsTx(tx, authorID, PointsCreatePost)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) GetPost(postID int64) (*Post, error) {
	var post Post
	if err := s.DB.First(&post, postID).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &post, nil
}

func (s *Store) GetPostBySlug(slug string) (*Post, error) {
	var post Post
	if err := s.DB.First(&post, "slug = ?", slug).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &post, nil
}

// UpdatePost edits content fields. The slug is stable after creation.
// PublishedAt is set exactly once, on the first transition to published.
func (s *Store) UpdatePost(requester *User, postID int64, in PostInput) (*Post, error) {
	var post Post
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&post, postID).Error; err != nil {
			return asStoreErr(err)
		}
		if !CanEditPost(requester, &post) {
			return fmt.Errorf("%w: not allowed to edit post %d", ErrForbidden, postID)
		}

		// Patch struct plus explicit column list: serialized columns such
		// as tags only serialize on struct-based updates.
		var cols []string
		var patch Post
		if t := strings.TrimSpace(in.Title); t != "" {
			patch.Title = t
			cols = append(cols, "title")
			post.Title = t
		}
		if strings.TrimSpace(in.Content) != "" {
			patch.Content = in.Content
			patch.ReadingTime = readingTime(in.Content)
			cols = append(cols, "content", "reading_time")
			post.Content = in.Content
			post.ReadingTime = patch.ReadingTime
		}
		if in.Excerpt != "" {
			patch.Excerpt = strings.TrimSpace(in.Excerpt)
			cols = append(cols, "excerpt")
		}
		if in.Category != "" {
			patch.Category = in.Category
			cols = append(cols, "category")
		}
		if in.Tags != nil {
			patch.Tags = in.Tags
			cols = append(cols, "tags")
			post.Tags = in.Tags
		}
		if in.FeaturedImage != "" {
			patch.FeaturedImage = in.FeaturedImage
			cols = append(cols, "featured_image")
		}
		if in.LocationName != "" {
			patch.LocationName = in.LocationName
			patch.Latitude = in.Latitude
			patch.Longitude = in.Longitude
			cols = append(cols, "location_name", "latitude", "longitude")
		}
		if in.Difficulty != "" {
			patch.Difficulty = in.Difficulty
			cols = append(cols, "difficulty")
		}
		if in.Status != "" {
			switch in.Status {
			case PostStatusDraft, PostStatusPublished, PostStatusArchived:
			default:
				return fmt.Errorf("%w: post status %q", ErrInvalidArgument, in.Status)
			}
			patch.Status = in.Status
			cols = append(cols, "status")
			post.Status = in.Status
			if in.Status == PostStatusPublished && post.PublishedAt == nil {
				now := time.Now().UTC()
				patch.PublishedAt = &now
				cols = append(cols, "published_at")
				post.PublishedAt = &now
			}
		}
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&Post{}).Where("id = ?", postID).Select(cols).Updates(&patch).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// PublishPost is the explicit draft → published transition.
func (s *Store) PublishPost(requester *User, postID int64) (*Post, error) {
	return s.UpdatePost(requester, postID, PostInput{Status: PostStatusPublished})
}

// ArchivePost takes a post out of circulation; archived posts are only
// visible to the author and staff.
func (s *Store) ArchivePost(requester *User, postID int64) error {
	_, err := s.UpdatePost(requester, postID, PostInput{Status: PostStatusArchived})
	return err
}

type PostFilter struct {
	Status   string
	Category string
	Tag      string
	AuthorID int64
	Search   string
}

// ListPosts pages through posts, published-only unless the filter says
// otherwise. Handlers are responsible for not exposing non-published
// filters to anonymous callers.
func (s *Store) ListPosts(f PostFilter, page, perPage int) ([]Post, int64, error) {
	limit, offset := normalizePage(page, perPage)
	q := s.DB.Model(&Post{})

	status := f.Status
	if status == "" {
		status = PostStatusPublished
	}
	if status != "all" {
		q = q.Where("status = ?", status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.AuthorID > 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if f.Tag != "" {
		// Tags live in a JSON text column; substring match on the quoted
		// value is the portable filter.
		q = q.Where("tags LIKE ?", "%\""+f.Tag+"\"%")
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title LIKE ? OR excerpt LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []Post
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, total, err
}

// IncrementPostViews bumps the view counter with a relative update; no
// read-modify-write, so concurrent views all count.
func (s *Store) IncrementPostViews(postID int64) error {
	res := s.DB.Model(&Post{}).Where("id = ?", postID).
		UpdateColumn("views_count", gorm.Expr("views_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	return nil
}

func (s *Store) SharePost(postID int64) error {
	res := s.DB.Model(&Post{}).Where("id = ?", postID).
		UpdateColumn("shares_count", gorm.Expr("shares_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	return nil
}

// EngagementScore weighs interactions against views:
// 100 * (3*likes + 5*comments + 10*shares) / views, capped at 100 and
// rounded to two decimals. Zero views means zero score.
func EngagementScore(p *Post) float64 {
	if p == nil || p.ViewsCount <= 0 {
		return 0
	}
	raw := 100 * (3*float64(p.LikesCount) + 5*float64(p.CommentsCount) + 10*float64(p.SharesCount)) / float64(p.ViewsCount)
	if raw > 100 {
		return 100
	}
	return math.Round(raw*100) / 100
}

const engagementScoreSQL = "CASE WHEN views_count > 0 THEN " +
	"(3.0*likes_count + 5.0*comments_count + 10.0*shares_count) / views_count " +
	"ELSE 0 END"

// FeaturedPosts returns editor-picked posts first, topped up with the
// highest-engagement published posts.
func (s *Store) FeaturedPosts(limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 6
	}
	var posts []Post
	err := s.DB.Where("status = ?", PostStatusPublished).
		Order("is_featured DESC").
		Order(engagementScoreSQL + " DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// TopPostsByEngagement ranks published posts by the engagement formula.
func (s *Store) TopPostsByEngagement(limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 10
	}
	var posts []Post
	err := s.DB.Where("status = ?", PostStatusPublished).
		Order(engagementScoreSQL + " DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}
