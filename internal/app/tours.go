package app

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

type TourInput struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Location        string   `json:"location"`
	DurationDays    int      `json:"duration_days"`
	MinParticipants int      `json:"min_participants"`
	MaxParticipants int      `json:"max_participants"`
	PricePerPerson  float64  `json:"price_per_person"`
	Discount        float64  `json:"discount"`
	Currency        string   `json:"currency"`
	Itinerary       []string `json:"itinerary"`
	Inclusions      []string `json:"inclusions"`
	Exclusions      []string `json:"exclusions"`
	Images          []string `json:"images"`
}

// CreateTour is for sellers (and admins). Creating a tour earns the same
// points as publishing a post.
func (s *Store) CreateTour(seller *User, in TourInput) (*Tour, error) {
	if !HasPermission(seller, PermSellTours) {
		return nil, fmt.Errorf("%w: seller role required", ErrForbidden)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty tour title", ErrInvalidArgument)
	}
	if in.PricePerPerson < 0 {
		return nil, fmt.Errorf("%w: negative price", ErrInvalidArgument)
	}
	if in.Discount < 0 || in.Discount > 100 {
		return nil, fmt.Errorf("%w: discount must be 0-100", ErrInvalidArgument)
	}

	tour := &Tour{
		SellerID:        seller.ID,
		Title:           title,
		Slug:            uniqueSlug(title),
		Description:     in.Description,
		Category:        in.Category,
		Location:        in.Location,
		DurationDays:    in.DurationDays,
		MinParticipants: in.MinParticipants,
		MaxParticipants: in.MaxParticipants,
		PricePerPerson:  in.PricePerPerson,
		Discount:        in.Discount,
		Currency:        in.Currency,
		Itinerary:       in.Itinerary,
		Inclusions:      in.Inclusions,
		Exclusions:      in.Exclusions,
		Images:          in.Images,
		Status:          TourStatusActive,
	}
	if tour.DurationDays < 1 {
		tour.DurationDays = 1
	}
	if tour.MinParticipants < 1 {
		tour.MinParticipants = 1
	}
	if tour.MaxParticipants < tour.MinParticipants {
		tour.MaxParticipants = tour.MinParticipants
	}
	if tour.Currency == "" {
		tour.Currency = "VND"
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tour).Error; err != nil {
			return err
		}
		_, err := addPointsTx(tx, seller.ID, PointsCreateTour)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tour, nil
}

func (s *Store) GetTour(tourID int64) (*Tour, error) {
	var tour Tour
	if err := s.DB.First(&tour, tourID).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &tour, nil
}

// ListTours pages through active tours, optionally filtered by category.
func (s *Store) ListTours(category string, page, perPage int) ([]Tour, int64, error) {
	limit, offset := normalizePage(page, perPage)
	q := s.DB.Model(&Tour{}).Where("status = ?", TourStatusActive)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var tours []Tour
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tours).Error
	return tours, total, err
}

// TourPrice applies the tour discount:
// price_per_person * participants * (1 - discount/100), rounded to two
// decimals.
func TourPrice(t *Tour, participants int) float64 {
	if t == nil || participants <= 0 {
		return 0
	}
	total := t.PricePerPerson * float64(participants) * (1 - t.Discount/100)
	return math.Round(total*100) / 100
}

type BookingInput struct {
	TourID       int64     `json:"tour_id"`
	StartDate    time.Time `json:"start_date"`
	Participants int       `json:"participants"`
	ContactPhone string    `json:"contact_phone"`
	Notes        string    `json:"notes"`
}

// CreateBooking validates the participant count against the tour bounds,
// computes the total server-side and bumps the tour's bookings counter in
// the same transaction.
func (s *Store) CreateBooking(userID int64, in BookingInput) (*Booking, error) {
	booking := &Booking{
		TourID:       in.TourID,
		UserID:       userID,
		StartDate:    in.StartDate,
		Participants: in.Participants,
		ContactPhone: in.ContactPhone,
		Notes:        in.Notes,
		Status:       BookingStatusPending,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var tour Tour
		if err := tx.First(&tour, in.TourID).Error; err != nil {
			return asStoreErr(err)
		}
		if tour.Status != TourStatusActive {
			return fmt.Errorf("%w: tour is not open for booking", ErrInvalidArgument)
		}
		if in.Participants < tour.MinParticipants || in.Participants > tour.MaxParticipants {
			return fmt.Errorf("%w: participants must be %d-%d",
				ErrInvalidArgument, tour.MinParticipants, tour.MaxParticipants)
		}
		booking.TotalPrice = TourPrice(&tour, in.Participants)
		booking.Currency = tour.Currency

		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		return tx.Model(&Tour{}).Where("id = ?", tour.ID).
			UpdateColumn("bookings_count", gorm.Expr("bookings_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

var bookingTransitions = map[string]map[string]bool{
	BookingStatusPending:   {BookingStatusConfirmed: true, BookingStatusCancelled: true},
	BookingStatusConfirmed: {BookingStatusCompleted: true, BookingStatusCancelled: true},
}

// UpdateBookingStatus moves a booking along pending → confirmed →
// completed (or cancelled). Only the tour seller and admins may do it;
// the booking owner may cancel their own pending booking.
func (s *Store) UpdateBookingStatus(requester *User, bookingID int64, status string) error {
	switch status {
	case BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
	default:
		return fmt.Errorf("%w: booking status %q", ErrInvalidArgument, status)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var booking Booking
		if err := forUpdate(tx).First(&booking, bookingID).Error; err != nil {
			return asStoreErr(err)
		}
		var tour Tour
		if err := tx.First(&tour, booking.TourID).Error; err != nil {
			return asStoreErr(err)
		}

		ownCancel := requester != nil && requester.ID == booking.UserID &&
			status == BookingStatusCancelled
		if !CanManageBooking(requester, &tour) && !ownCancel {
			return fmt.Errorf("%w: not allowed to manage this booking", ErrForbidden)
		}
		if !bookingTransitions[booking.Status][status] {
			return fmt.Errorf("%w: booking %s → %s", ErrInvalidStateTransition, booking.Status, status)
		}
		return tx.Model(&Booking{}).Where("id = ?", bookingID).
			Update("status", status).Error
	})
}

func (s *Store) ListUserBookings(userID int64) ([]Booking, error) {
	var bookings []Booking
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&bookings).Error
	return bookings, err
}

// ListSellerBookings returns bookings across all of a seller's tours.
func (s *Store) ListSellerBookings(sellerID int64) ([]Booking, error) {
	var bookings []Booking
	err := s.DB.
		Where("tour_id IN (?)", s.DB.Model(&Tour{}).Select("id").Where("seller_id = ?", sellerID)).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}
