package app

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

type PlatformStats struct {
	TotalUsers     int64 `json:"total_users"`
	ActiveUsers    int64 `json:"active_users"`
	TotalPosts     int64 `json:"total_posts"`
	PublishedPosts int64 `json:"published_posts"`
	TotalComments  int64 `json:"total_comments"`
	TotalTours     int64 `json:"total_tours"`
	TotalBookings  int64 `json:"total_bookings"`
	MintedNFTs     int64 `json:"minted_nfts"`
	PendingReports int64 `json:"pending_reports"`
}

func (s *Store) PlatformStats() (*PlatformStats, error) {
	stats := &PlatformStats{}
	counts := []func() error{
		func() error { return s.DB.Model(&User{}).Count(&stats.TotalUsers).Error },
		func() error {
			return s.DB.Model(&User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error
		},
		func() error { return s.DB.Model(&Post{}).Count(&stats.TotalPosts).Error },
		func() error {
			return s.DB.Model(&Post{}).Where("status = ?", PostStatusPublished).Count(&stats.PublishedPosts).Error
		},
		func() error {
			return s.DB.Model(&Comment{}).Where("status <> ?", CommentStatusDeleted).Count(&stats.TotalComments).Error
		},
		func() error { return s.DB.Model(&Tour{}).Count(&stats.TotalTours).Error },
		func() error { return s.DB.Model(&Booking{}).Count(&stats.TotalBookings).Error },
		func() error {
			return s.DB.Model(&NFT{}).Where("status = ?", NFTStatusMinted).Count(&stats.MintedNFTs).Error
		},
		func() error {
			return s.DB.Model(&Report{}).Where("status = ?", ReportStatusPending).Count(&stats.PendingReports).Error
		},
	}
	for _, count := range counts {
		if err := count(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

type DailyActivity struct {
	Day      time.Time `json:"day"`
	Posts    int64     `json:"posts"`
	Comments int64     `json:"comments"`
}

// ActivitySeries counts posts and comments created per day over the last
// N days, oldest first.
func (s *Store) ActivitySeries(days int) ([]DailyActivity, error) {
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	now := time.Now().UTC()
	series := make([]DailyActivity, 0, days)
	for i := days - 1; i >= 0; i-- {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)

		var posts, comments int64
		if err := s.DB.Model(&Post{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Count(&posts).Error; err != nil {
			return nil, err
		}
		if err := s.DB.Model(&Comment{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Count(&comments).Error; err != nil {
			return nil, err
		}
		series = append(series, DailyActivity{Day: dayStart, Posts: posts, Comments: comments})
	}
	return series, nil
}

// renderActivityChart draws the daily activity series as a PNG for the
// admin dashboard.
func renderActivityChart(series []DailyActivity) ([]byte, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("%w: need at least two days of activity", ErrInvalidArgument)
	}

	dates := make([]time.Time, 0, len(series))
	posts := make([]float64, 0, len(series))
	comments := make([]float64, 0, len(series))
	for _, d := range series {
		dates = append(dates, d.Day)
		posts = append(posts, float64(d.Posts))
		comments = append(comments, float64(d.Comments))
	}

	graph := chart.Chart{
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20}},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Posts",
				XValues: dates,
				YValues: posts,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 4.0, DotColor: chart.ColorWhite, DotWidth: 3.0},
			},
			chart.TimeSeries{
				Name:    "Comments",
				XValues: dates,
				YValues: comments,
				Style:   chart.Style{StrokeColor: chart.ColorGreen, StrokeWidth: 4.0, DotColor: chart.ColorWhite, DotWidth: 3.0},
			},
		},
		XAxis:  chart.XAxis{Name: "Day", ValueFormatter: chart.TimeValueFormatterWithFormat("02 Jan")},
		YAxis:  chart.YAxis{Name: "Created", ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v.(float64)) }},
		Height: 400,
		Width:  800,
	}

	buffer := bytes.NewBuffer([]byte{})
	err := graph.Render(chart.PNG, buffer)
	return buffer.Bytes(), err
}
