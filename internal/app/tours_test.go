package app

import (
	"errors"
	"testing"
	"time"
)

func seedTour(t *testing.T, s *Store, seller *User, price, discount float64) *Tour {
	t.Helper()
	tour, err := s.CreateTour(seller, TourInput{
		Title:           "Mekong delta two days",
		Description:     "Boat, bikes and homestay.",
		Category:        "river",
		Location:        "Cần Thơ",
		DurationDays:    2,
		MinParticipants: 2,
		MaxParticipants: 10,
		PricePerPerson:  price,
		Discount:        discount,
	})
	if err != nil {
		t.Fatalf("seed tour: %v", err)
	}
	return tour
}

func TestCreateTourPermissionsAndPoints(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)
	seller := seedUser(t, s, RoleSeller)

	if _, err := s.CreateTour(user, TourInput{Title: "nope", PricePerPerson: 100}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("plain user selling: got %v, want ErrForbidden", err)
	}

	tour := seedTour(t, s, seller, 1200000, 0)
	if tour.Currency != "VND" || tour.Status != TourStatusActive {
		t.Fatalf("defaults: currency=%q status=%q", tour.Currency, tour.Status)
	}
	got, _ := s.GetUser(seller.ID)
	if got.Points != PointsRegister+PointsCreateTour {
		t.Fatalf("seller points = %d, want %d", got.Points, PointsRegister+PointsCreateTour)
	}
}

func TestCreateTourValidation(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)

	if _, err := s.CreateTour(seller, TourInput{Title: "  ", PricePerPerson: 100}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("blank title: got %v", err)
	}
	if _, err := s.CreateTour(seller, TourInput{Title: "t", PricePerPerson: -5}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative price: got %v", err)
	}
	if _, err := s.CreateTour(seller, TourInput{Title: "t", PricePerPerson: 100, Discount: 120}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("discount over 100: got %v", err)
	}
}

func TestTourPrice(t *testing.T) {
	cases := []struct {
		price        float64
		discount     float64
		participants int
		want         float64
	}{
		{500000, 0, 2, 1000000},
		{500000, 10, 2, 900000},
		{333333, 15, 3, 849999.15},
		{500000, 100, 4, 0},
		{500000, 10, 0, 0},
	}
	for _, c := range cases {
		tour := &Tour{PricePerPerson: c.price, Discount: c.discount}
		if got := TourPrice(tour, c.participants); got != c.want {
			t.Fatalf("TourPrice(%v, %v%%, %d) = %v, want %v",
				c.price, c.discount, c.participants, got, c.want)
		}
	}
	if TourPrice(nil, 2) != 0 {
		t.Fatalf("nil tour must price at 0")
	}
}

func TestCreateBooking(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)
	buyer := seedUser(t, s, RoleUser)
	tour := seedTour(t, s, seller, 500000, 10)

	booking, err := s.CreateBooking(buyer.ID, BookingInput{
		TourID:       tour.ID,
		StartDate:    time.Now().AddDate(0, 0, 14),
		Participants: 4,
		ContactPhone: "+84 90 123 4567",
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booking.Status != BookingStatusPending {
		t.Fatalf("status = %q, want pending", booking.Status)
	}
	// Total is computed server-side: 500000 * 4 * 0.9.
	if booking.TotalPrice != 1800000 {
		t.Fatalf("total = %v, want 1800000", booking.TotalPrice)
	}
	if booking.Currency != "VND" {
		t.Fatalf("currency = %q", booking.Currency)
	}

	gotTour, _ := s.GetTour(tour.ID)
	if gotTour.BookingsCount != 1 {
		t.Fatalf("bookings_count = %d, want 1", gotTour.BookingsCount)
	}
}

func TestCreateBookingParticipantBounds(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)
	buyer := seedUser(t, s, RoleUser)
	tour := seedTour(t, s, seller, 500000, 0) // min 2, max 10

	for _, participants := range []int{1, 11} {
		_, err := s.CreateBooking(buyer.ID, BookingInput{TourID: tour.ID, Participants: participants})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%d participants: got %v, want ErrInvalidArgument", participants, err)
		}
	}
	if _, err := s.CreateBooking(buyer.ID, BookingInput{TourID: 999999, Participants: 2}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing tour: got %v, want ErrNotFound", err)
	}
}

func TestCreateBookingPausedTour(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)
	buyer := seedUser(t, s, RoleUser)
	tour := seedTour(t, s, seller, 500000, 0)

	if err := s.DB.Model(&Tour{}).Where("id = ?", tour.ID).
		Update("status", TourStatusPaused).Error; err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := s.CreateBooking(buyer.ID, BookingInput{TourID: tour.ID, Participants: 2}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("paused tour: got %v, want ErrInvalidArgument", err)
	}
}

func TestBookingStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)
	buyer := seedUser(t, s, RoleUser)
	tour := seedTour(t, s, seller, 500000, 0)

	booking, err := s.CreateBooking(buyer.ID, BookingInput{TourID: tour.ID, Participants: 2})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	// pending → completed skips confirmation.
	if err := s.UpdateBookingStatus(seller, booking.ID, BookingStatusCompleted); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("pending->completed: got %v, want ErrInvalidStateTransition", err)
	}
	if err := s.UpdateBookingStatus(seller, booking.ID, BookingStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := s.UpdateBookingStatus(seller, booking.ID, BookingStatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	// completed is final.
	if err := s.UpdateBookingStatus(seller, booking.ID, BookingStatusCancelled); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("cancel completed: got %v, want ErrInvalidStateTransition", err)
	}
}

func TestBookingPermissions(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)
	buyer := seedUser(t, s, RoleUser)
	stranger := seedUser(t, s, RoleUser)
	tour := seedTour(t, s, seller, 500000, 0)

	booking, _ := s.CreateBooking(buyer.ID, BookingInput{TourID: tour.ID, Participants: 2})

	// A stranger can touch nothing.
	if err := s.UpdateBookingStatus(stranger, booking.ID, BookingStatusConfirmed); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger confirm: got %v, want ErrForbidden", err)
	}
	// The buyer cannot confirm their own booking...
	if err := s.UpdateBookingStatus(buyer, booking.ID, BookingStatusConfirmed); !errors.Is(err, ErrForbidden) {
		t.Fatalf("buyer confirm: got %v, want ErrForbidden", err)
	}
	// ...but may cancel it.
	if err := s.UpdateBookingStatus(buyer, booking.ID, BookingStatusCancelled); err != nil {
		t.Fatalf("own cancel: %v", err)
	}
}

func TestListBookings(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)
	buyer := seedUser(t, s, RoleUser)
	tour := seedTour(t, s, seller, 500000, 0)

	if _, err := s.CreateBooking(buyer.ID, BookingInput{TourID: tour.ID, Participants: 2}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	mine, err := s.ListUserBookings(buyer.ID)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListUserBookings: len=%d err=%v", len(mine), err)
	}
	sold, err := s.ListSellerBookings(seller.ID)
	if err != nil || len(sold) != 1 {
		t.Fatalf("ListSellerBookings: len=%d err=%v", len(sold), err)
	}
	none, err := s.ListSellerBookings(buyer.ID)
	if err != nil || len(none) != 0 {
		t.Fatalf("buyer as seller: len=%d err=%v", len(none), err)
	}
}

func TestListToursFiltersCategory(t *testing.T) {
	s := newTestStore(t)
	seller := seedUser(t, s, RoleSeller)
	river := seedTour(t, s, seller, 500000, 0)
	hiking, err := s.CreateTour(seller, TourInput{
		Title:          "Fansipan summit",
		Category:       "trekking",
		PricePerPerson: 900000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tours, total, err := s.ListTours("trekking", 1, 20)
	if err != nil {
		t.Fatalf("ListTours: %v", err)
	}
	if total != 1 || tours[0].ID != hiking.ID {
		t.Fatalf("category filter: total=%d tours=%+v", total, tours)
	}
	_, total, _ = s.ListTours("", 1, 20)
	if total != 2 {
		t.Fatalf("all active total = %d, want 2", total)
	}
	_ = river
}
