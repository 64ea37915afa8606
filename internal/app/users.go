package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

const minPasswordLen = 8

// Register creates the account, hashes the password and seeds the
// gamification state: the welcome badge plus the sign-up points, all in
// one transaction.
func (s *Store) Register(username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if !usernameRegex.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-30 word characters", ErrInvalidArgument)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidArgument)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleUser,
		IsActive:     true,
		Language:     "vi",
		Level:        1,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).
			Where("username = ? OR email = ?", username, email).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if _, err := addBadgeTx(tx, user.ID, BadgeWelcome); err != nil {
			return err
		}
		_, err := addPointsTx(tx, user.ID, PointsRegister)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials against either username or email.
// Deactivated accounts cannot log in.
func (s *Store) Authenticate(login, password string) (*User, error) {
	login = strings.TrimSpace(login)
	var user User
	err := s.DB.
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: bad credentials", ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", ErrForbidden)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: bad credentials", ErrUnauthorized)
	}
	return &user, nil
}

func (s *Store) GetUser(userID int64) (*User, error) {
	var user User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(username string) (*User, error) {
	var user User
	if err := s.DB.First(&user, "username = ?", username).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &user, nil
}

type ProfileInput struct {
	FullName    string            `json:"full_name"`
	Bio         string            `json:"bio"`
	AvatarURL   string            `json:"avatar_url"`
	Location    string            `json:"location"`
	Language    string            `json:"language"`
	SocialLinks map[string]string `json:"social_links"`
}

// UpdateProfile writes the self-service profile fields. Role, points and
// the embedded lists are never touched here. The patch is a struct with
// an explicit column list so social_links passes through the serializer.
func (s *Store) UpdateProfile(userID int64, in ProfileInput) (*User, error) {
	var cols []string
	var patch User
	if in.FullName != "" {
		patch.FullName = strings.TrimSpace(in.FullName)
		cols = append(cols, "full_name")
	}
	if in.Bio != "" {
		patch.Bio = in.Bio
		cols = append(cols, "bio")
	}
	if in.AvatarURL != "" {
		patch.AvatarURL = in.AvatarURL
		cols = append(cols, "avatar_url")
	}
	if in.Location != "" {
		patch.Location = in.Location
		cols = append(cols, "location")
	}
	if in.Language != "" {
		patch.Language = in.Language
		cols = append(cols, "language")
	}
	if in.SocialLinks != nil {
		patch.SocialLinks = in.SocialLinks
		cols = append(cols, "social_links")
	}
	if len(cols) > 0 {
		res := s.DB.Model(&User{}).Where("id = ?", userID).Select(cols).Updates(&patch)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
	}
	return s.GetUser(userID)
}

// SetUserActive bans or restores an account. Accounts are never hard
// deleted; their content keeps its author reference.
func (s *Store) SetUserActive(requester *User, userID int64, active bool) error {
	if !HasPermission(requester, PermManageUsers) && !(requester != nil && requester.ID == userID && !active) {
		return fmt.Errorf("%w: cannot change account state", ErrForbidden)
	}
	res := s.DB.Model(&User{}).Where("id = ?", userID).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

// SetUserRole is admin-only.
func (s *Store) SetUserRole(requester *User, userID int64, role string) error {
	if requester == nil || requester.Role != RoleAdmin {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	switch role {
	case RoleUser, RoleSeller, RoleEditor, RoleModerator, RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	res := s.DB.Model(&User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

// CheckIn awards the daily check-in points once per calendar day (UTC).
// A second check-in on the same day fails with ErrConflict.
func (s *Store) CheckIn(userID int64) (int, error) {
	awarded := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return asStoreErr(err)
		}
		now := time.Now().UTC()
		if user.LastCheckInAt != nil && sameDay(user.LastCheckInAt.UTC(), now) {
			return fmt.Errorf("%w: already checked in today", ErrConflict)
		}
		if err := tx.Model(&User{}).Where("id = ?", userID).
			Update("last_check_in_at", now).Error; err != nil {
			return err
		}
		if _, err := addPointsTx(tx, userID, PointsCheckIn); err != nil {
			return err
		}
		awarded = PointsCheckIn
		return nil
	})
	return awarded, err
}

// UserLeaderboard ranks active users by points.
func (s *Store) UserLeaderboard(limit int) ([]User, error) {
	if limit <= 0 {
		limit = 10
	}
	var users []User
	err := s.DB.Where("is_active = ?", true).
		Order("points DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
