package app

import (
	"fmt"

	"gorm.io/gorm"
)

// Point awards for user actions. Level is derived from lifetime points:
// floor(points/1000)+1, and never decreases.
const (
	PointsRegister      = 50
	PointsCreatePost    = 100
	PointsCreateComment = 10
	PointsCreateTour    = 100
	PointsMintNFT       = 200
	PointsCheckIn       = 25

	pointsPerLevel = 1000
)

const BadgeWelcome = "welcome"

func levelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/pointsPerLevel + 1
}

// AddPoints credits amount to the user and recomputes the level. Negative
// amounts are rejected. Returns whether the user leveled up.
func (s *Store) AddPoints(userID int64, amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("%w: negative point amount %d", ErrInvalidArgument, amount)
	}
	leveledUp := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		leveledUp, err = addPointsTx(tx, userID, amount)
		return err
	})
	return leveledUp, err
}

// addPointsTx runs inside a caller-owned transaction so point awards land
// atomically with the action that earned them.
func addPointsTx(tx *gorm.DB, userID int64, amount int) (bool, error) {
	var user User
	if err := forUpdate(tx).First(&user, userID).Error; err != nil {
		return false, asStoreErr(err)
	}

	newPoints := user.Points + amount
	newLevel := levelForPoints(newPoints)
	updates := map[string]any{"points": newPoints}
	leveledUp := newLevel > user.Level
	if leveledUp {
		updates["level"] = newLevel
	}
	return leveledUp, tx.Model(&User{}).Where("id = ?", userID).Updates(updates).Error
}

// AddBadge grants a named badge once. Granting an already-held badge is a
// no-op and reports added=false.
func (s *Store) AddBadge(userID int64, badge string) (bool, error) {
	if badge == "" {
		return false, fmt.Errorf("%w: empty badge name", ErrInvalidArgument)
	}
	added := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		added, err = addBadgeTx(tx, userID, badge)
		return err
	})
	return added, err
}

func addBadgeTx(tx *gorm.DB, userID int64, badge string) (bool, error) {
	var user User
	if err := forUpdate(tx).First(&user, userID).Error; err != nil {
		return false, asStoreErr(err)
	}
	if containsString(user.Badges, badge) {
		return false, nil
	}
	user.Badges = append(user.Badges, badge)
	// Serialized list columns must go through a struct update; a map or
	// single-column Update writes the raw Go value past the serializer.
	return true, tx.Model(&User{}).Where("id = ?", userID).
		Select("badges").Updates(&User{Badges: user.Badges}).Error
}

// ToggleBookmark flips post membership in the user's bookmark list.
// Returns the resulting state (true = bookmarked).
func (s *Store) ToggleBookmark(userID, postID int64) (bool, error) {
	bookmarked := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return asStoreErr(err)
		}
		var post Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			return asStoreErr(err)
		}

		if containsID(user.Bookmarks, postID) {
			user.Bookmarks = removeID(user.Bookmarks, postID)
		} else {
			user.Bookmarks = append(user.Bookmarks, postID)
			bookmarked = true
		}
		return tx.Model(&User{}).Where("id = ?", userID).
			Select("bookmarks").Updates(&User{Bookmarks: user.Bookmarks}).Error
	})
	return bookmarked, err
}

// ToggleLike flips post membership in the user's liked list and moves the
// post's likes counter by exactly one in the same transaction, so the
// counter always matches the membership change.
func (s *Store) ToggleLike(userID, postID int64) (bool, error) {
	liked := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return asStoreErr(err)
		}
		var post Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			return asStoreErr(err)
		}

		var counter string
		if containsID(user.LikedPosts, postID) {
			user.LikedPosts = removeID(user.LikedPosts, postID)
			counter = counterDecrExpr("likes_count")
		} else {
			user.LikedPosts = append(user.LikedPosts, postID)
			counter = "likes_count + 1"
			liked = true
		}

		if err := tx.Model(&User{}).Where("id = ?", userID).
			Select("liked_posts").Updates(&User{LikedPosts: user.LikedPosts}).Error; err != nil {
			return err
		}
		return tx.Model(&Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr(counter)).Error
	})
	return liked, err
}

// Follow adds target to follower's following list and follower to target's
// followers list in one transaction. Self-follow is rejected. Following an
// already-followed user is a no-op.
func (s *Store) Follow(followerID, targetID int64) error {
	return s.mutateFollowEdge(followerID, targetID, true)
}

// Unfollow removes the edge from both sides. Unfollowing a user who is not
// followed is a no-op.
func (s *Store) Unfollow(followerID, targetID int64) error {
	return s.mutateFollowEdge(followerID, targetID, false)
}

func (s *Store) mutateFollowEdge(followerID, targetID int64, add bool) error {
	if followerID == targetID {
		return fmt.Errorf("%w: cannot follow yourself", ErrInvalidArgument)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		// Lock both rows in ascending id order to avoid deadlocks.
		firstID, secondID := followerID, targetID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		var first, second User
		if err := forUpdate(tx).First(&first, firstID).Error; err != nil {
			return asStoreErr(err)
		}
		if err := forUpdate(tx).First(&second, secondID).Error; err != nil {
			return asStoreErr(err)
		}

		follower, target := &first, &second
		if follower.ID != followerID {
			follower, target = &second, &first
		}

		if add {
			if containsID(follower.Following, targetID) {
				return nil
			}
			follower.Following = append(follower.Following, targetID)
			if !containsID(target.Followers, followerID) {
				target.Followers = append(target.Followers, followerID)
			}
		} else {
			if !containsID(follower.Following, targetID) {
				return nil
			}
			follower.Following = removeID(follower.Following, targetID)
			target.Followers = removeID(target.Followers, followerID)
		}

		if err := tx.Model(&User{}).Where("id = ?", follower.ID).
			Select("following").Updates(&User{Following: follower.Following}).Error; err != nil {
			return err
		}
		return tx.Model(&User{}).Where("id = ?", target.ID).
			Select("followers").Updates(&User{Followers: target.Followers}).Error
	})
}
