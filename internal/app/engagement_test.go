package app

import (
	"errors"
	"testing"
)

func TestAddPoints(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser) // registration already granted 50

	leveled, err := s.AddPoints(user.ID, 100)
	if err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if leveled {
		t.Fatalf("150 points must not level up")
	}

	got, _ := s.GetUser(user.ID)
	if got.Points != PointsRegister+100 {
		t.Fatalf("points = %d, want %d", got.Points, PointsRegister+100)
	}
	if got.Level != 1 {
		t.Fatalf("level = %d, want 1", got.Level)
	}
}

func TestAddPointsLevelUp(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)

	leveled, err := s.AddPoints(user.ID, 1000)
	if err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if !leveled {
		t.Fatalf("crossing 1000 points must level up")
	}
	got, _ := s.GetUser(user.ID)
	if got.Level != 2 {
		t.Fatalf("level = %d, want 2", got.Level)
	}
}

func TestAddPointsRejectsNegative(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)

	if _, err := s.AddPoints(user.ID, -10); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative amount: got %v, want ErrInvalidArgument", err)
	}
	got, _ := s.GetUser(user.ID)
	if got.Points != PointsRegister {
		t.Fatalf("points changed after rejected award: %d", got.Points)
	}
}

func TestAddPointsUnknownUser(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddPoints(9999, 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLevelForPoints(t *testing.T) {
	cases := []struct {
		points int
		want   int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{2500, 3},
		{10000, 11},
	}
	for _, c := range cases {
		if got := levelForPoints(c.points); got != c.want {
			t.Fatalf("levelForPoints(%d) = %d, want %d", c.points, got, c.want)
		}
	}
}

func TestLevelNeverDecreases(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)

	for _, amount := range []int{500, 600, 0, 1200} {
		before, _ := s.GetUser(user.ID)
		if _, err := s.AddPoints(user.ID, amount); err != nil {
			t.Fatalf("AddPoints(%d): %v", amount, err)
		}
		after, _ := s.GetUser(user.ID)
		if after.Level < before.Level {
			t.Fatalf("level dropped %d -> %d", before.Level, after.Level)
		}
	}
}

func TestAddBadgeIdempotent(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)

	added, err := s.AddBadge(user.ID, "explorer_bronze")
	if err != nil || !added {
		t.Fatalf("first AddBadge: added=%v err=%v", added, err)
	}
	added, err = s.AddBadge(user.ID, "explorer_bronze")
	if err != nil {
		t.Fatalf("second AddBadge: %v", err)
	}
	if added {
		t.Fatalf("second grant of the same badge must be a no-op")
	}

	got, _ := s.GetUser(user.ID)
	count := 0
	for _, b := range got.Badges {
		if b == "explorer_bronze" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("badge appears %d times, want 1", count)
	}
}

func TestToggleBookmark(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, user.ID)

	on, err := s.ToggleBookmark(user.ID, post.ID)
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	got, _ := s.GetUser(user.ID)
	if !containsID(got.Bookmarks, post.ID) {
		t.Fatalf("post missing from bookmarks after toggle on")
	}

	on, err = s.ToggleBookmark(user.ID, post.ID)
	if err != nil || on {
		t.Fatalf("second toggle: on=%v err=%v", on, err)
	}
	got, _ = s.GetUser(user.ID)
	if containsID(got.Bookmarks, post.ID) {
		t.Fatalf("post still bookmarked after toggle off")
	}
}

func TestToggleBookmarkMissingPost(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)
	if _, err := s.ToggleBookmark(user.ID, 424242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestToggleLikeKeepsCounterInSync(t *testing.T) {
	s := newTestStore(t)
	author := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, author.ID)
	alice := seedUser(t, s, RoleUser)
	bob := seedUser(t, s, RoleUser)

	// on, on, off, on again (idempotent membership, counter follows).
	steps := []struct {
		userID int64
		want   int
	}{
		{alice.ID, 1},
		{bob.ID, 2},
		{alice.ID, 1},
		{alice.ID, 2},
	}
	for i, step := range steps {
		if _, err := s.ToggleLike(step.userID, post.ID); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		got, _ := s.GetPost(post.ID)
		if got.LikesCount != step.want {
			t.Fatalf("step %d: likes_count = %d, want %d", i, got.LikesCount, step.want)
		}
	}

	aliceRow, _ := s.GetUser(alice.ID)
	if !containsID(aliceRow.LikedPosts, post.ID) {
		t.Fatalf("alice's liked list out of sync with counter")
	}
}

func TestFollowSymmetry(t *testing.T) {
	s := newTestStore(t)
	alice := seedUser(t, s, RoleUser)
	bob := seedUser(t, s, RoleUser)

	if err := s.Follow(alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	// Repeat must be a no-op.
	if err := s.Follow(alice.ID, bob.ID); err != nil {
		t.Fatalf("repeat Follow: %v", err)
	}

	a, _ := s.GetUser(alice.ID)
	b, _ := s.GetUser(bob.ID)
	if !containsID(a.Following, bob.ID) || len(a.Following) != 1 {
		t.Fatalf("alice.following = %v", a.Following)
	}
	if !containsID(b.Followers, alice.ID) || len(b.Followers) != 1 {
		t.Fatalf("bob.followers = %v", b.Followers)
	}

	if err := s.Unfollow(alice.ID, bob.ID); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if err := s.Unfollow(alice.ID, bob.ID); err != nil {
		t.Fatalf("repeat Unfollow: %v", err)
	}

	a, _ = s.GetUser(alice.ID)
	b, _ = s.GetUser(bob.ID)
	if len(a.Following) != 0 || len(b.Followers) != 0 {
		t.Fatalf("edge not removed on both sides: %v / %v", a.Following, b.Followers)
	}
}

func TestSelfFollowRejected(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, RoleUser)
	if err := s.Follow(user.ID, user.ID); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

// Every embedded list is stored through the JSON serializer; a write that
// skips it leaves a row later reads cannot decode. Mutate all of them,
// then load the rows fresh and make sure both decode and content hold.
func TestEmbeddedListsSurviveReload(t *testing.T) {
	s := newTestStore(t)
	alice := seedUser(t, s, RoleUser)
	bob := seedUser(t, s, RoleUser)
	post := seedPublishedPost(t, s, bob.ID)

	if _, err := s.AddBadge(alice.ID, "storyteller_silver"); err != nil {
		t.Fatalf("AddBadge: %v", err)
	}
	if _, err := s.ToggleBookmark(alice.ID, post.ID); err != nil {
		t.Fatalf("ToggleBookmark: %v", err)
	}
	if _, err := s.ToggleLike(alice.ID, post.ID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if err := s.Follow(alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}

	var fresh User
	if err := s.DB.First(&fresh, alice.ID).Error; err != nil {
		t.Fatalf("reload after list writes: %v", err)
	}
	if !containsString(fresh.Badges, BadgeWelcome) || !containsString(fresh.Badges, "storyteller_silver") {
		t.Fatalf("badges = %v", fresh.Badges)
	}
	if !containsID(fresh.Bookmarks, post.ID) {
		t.Fatalf("bookmarks = %v", fresh.Bookmarks)
	}
	if !containsID(fresh.LikedPosts, post.ID) {
		t.Fatalf("liked_posts = %v", fresh.LikedPosts)
	}
	if !containsID(fresh.Following, bob.ID) {
		t.Fatalf("following = %v", fresh.Following)
	}

	var target User
	if err := s.DB.First(&target, bob.ID).Error; err != nil {
		t.Fatalf("reload followed user: %v", err)
	}
	if !containsID(target.Followers, alice.ID) {
		t.Fatalf("followers = %v", target.Followers)
	}
}
