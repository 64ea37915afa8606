package app

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var reportTargetTypes = map[string]bool{
	ReportTypePost:    true,
	ReportTypeComment: true,
	ReportTypeUser:    true,
	ReportTypeTour:    true,
}

// FileReport records a user report against a post, comment, user or tour.
// The target must exist at filing time; what happens to it afterwards is
// the moderators' problem (see ResolveReportTarget).
func (s *Store) FileReport(reporterID int64, targetType string, targetID int64, reason, description string) (*Report, error) {
	if !reportTargetTypes[targetType] {
		return nil, fmt.Errorf("%w: unknown report target type %q", ErrInvalidArgument, targetType)
	}
	if !reportReasons[reason] {
		return nil, fmt.Errorf("%w: unknown report reason %q", ErrInvalidArgument, reason)
	}

	report := &Report{
		ReporterID:  reporterID,
		TargetType:  targetType,
		TargetID:    targetID,
		Reason:      reason,
		Description: description,
		Priority:    reportPriority(reason),
		Status:      ReportStatusPending,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := targetExistsTx(tx, targetType, targetID); err != nil {
			return err
		}
		return tx.Create(report).Error
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ReportComment flags the comment and files the report in a single
// transaction, so the moderation queue can never hold a flagged comment
// without its report (or the other way round). Returns the report and
// the comment as it stands after the flag.
func (s *Store) ReportComment(reporterID, commentID int64, reason, description string) (*Report, *Comment, error) {
	report := &Report{
		ReporterID:  reporterID,
		TargetType:  ReportTypeComment,
		TargetID:    commentID,
		Reason:      reason,
		Description: description,
		Priority:    reportPriority(reason),
		Status:      ReportStatusPending,
	}
	var comment *Comment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// The flag locks and validates the comment, which covers the
		// target-existence check FileReport would do.
		c, err := flagCommentTx(tx, commentID, reason)
		if err != nil {
			return err
		}
		comment = c
		return tx.Create(report).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return report, comment, nil
}

func reportPriority(reason string) string {
	switch reason {
	case "harassment", "scam":
		return "high"
	default:
		return "normal"
	}
}

func targetExistsTx(tx *gorm.DB, targetType string, targetID int64) error {
	var err error
	switch targetType {
	case ReportTypePost:
		err = tx.Select("id").First(&Post{}, targetID).Error
	case ReportTypeComment:
		err = tx.Select("id").First(&Comment{}, targetID).Error
	case ReportTypeUser:
		err = tx.Select("id").First(&User{}, targetID).Error
	case ReportTypeTour:
		err = tx.Select("id").First(&Tour{}, targetID).Error
	}
	return asStoreErr(err)
}

// StartReview assigns the report and moves pending → reviewing.
func (s *Store) StartReview(reportID, assigneeID int64) error {
	return s.transitionReport(reportID, func(r *Report) (map[string]any, error) {
		if r.Status != ReportStatusPending {
			return nil, fmt.Errorf("%w: report is %s", ErrInvalidStateTransition, r.Status)
		}
		return map[string]any{
			"status":      ReportStatusReviewing,
			"assignee_id": assigneeID,
		}, nil
	})
}

// ResolveReport closes the report with a resolution. Resolved and
// dismissed are terminal: a second resolve, or a dismiss after a resolve,
// fails with ErrInvalidStateTransition.
func (s *Store) ResolveReport(reportID, resolvedByID int64, notes string) error {
	return s.closeReport(reportID, resolvedByID, ReportStatusResolved, notes)
}

// DismissReport closes the report without action.
func (s *Store) DismissReport(reportID, resolvedByID int64, notes string) error {
	return s.closeReport(reportID, resolvedByID, ReportStatusDismissed, notes)
}

func (s *Store) closeReport(reportID, resolvedByID int64, target, notes string) error {
	return s.transitionReport(reportID, func(r *Report) (map[string]any, error) {
		if r.IsTerminal() {
			return nil, fmt.Errorf("%w: report already %s", ErrInvalidStateTransition, r.Status)
		}
		now := time.Now().UTC()
		return map[string]any{
			"status":           target,
			"resolved_by_id":   resolvedByID,
			"resolution_notes": notes,
			"resolved_at":      now,
		}, nil
	})
}

// transitionReport applies a state change under a row lock so two admins
// acting on the same report cannot both win.
func (s *Store) transitionReport(reportID int64, decide func(*Report) (map[string]any, error)) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var report Report
		if err := forUpdate(tx).First(&report, reportID).Error; err != nil {
			return asStoreErr(err)
		}
		updates, err := decide(&report)
		if err != nil {
			return err
		}
		return tx.Model(&Report{}).Where("id = ?", reportID).Updates(updates).Error
	})
}

func (s *Store) GetReport(reportID int64) (*Report, error) {
	var report Report
	if err := s.DB.First(&report, reportID).Error; err != nil {
		return nil, asStoreErr(err)
	}
	return &report, nil
}

// ListReports returns reports filtered by status (empty = all), newest
// first within priority.
func (s *Store) ListReports(status string, page, perPage int) ([]Report, int64, error) {
	limit, offset := normalizePage(page, perPage)
	q := s.DB.Model(&Report{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var reports []Report
	err := q.Order("CASE priority WHEN 'high' THEN 0 ELSE 1 END, created_at DESC").
		Limit(limit).Offset(offset).Find(&reports).Error
	return reports, total, err
}

// ResolveReportTarget loads the reported entity for the moderation view.
// A target deleted since the report was filed is not an error: the
// snapshot comes back nil and the caller shows "target gone".
func (s *Store) ResolveReportTarget(r *Report) (map[string]any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil report", ErrInvalidArgument)
	}
	switch r.TargetType {
	case ReportTypePost:
		var post Post
		if err := s.DB.First(&post, r.TargetID).Error; err != nil {
			return nil, tolerateMissing(err)
		}
		return map[string]any{"type": ReportTypePost, "post": post}, nil
	case ReportTypeComment:
		var comment Comment
		if err := s.DB.First(&comment, r.TargetID).Error; err != nil {
			return nil, tolerateMissing(err)
		}
		return map[string]any{"type": ReportTypeComment, "comment": comment}, nil
	case ReportTypeUser:
		var user User
		if err := s.DB.First(&user, r.TargetID).Error; err != nil {
			return nil, tolerateMissing(err)
		}
		return map[string]any{"type": ReportTypeUser, "user": user}, nil
	case ReportTypeTour:
		var tour Tour
		if err := s.DB.First(&tour, r.TargetID).Error; err != nil {
			return nil, tolerateMissing(err)
		}
		return map[string]any{"type": ReportTypeTour, "tour": tour}, nil
	default:
		return nil, fmt.Errorf("%w: unknown report target type %q", ErrInvalidArgument, r.TargetType)
	}
}

func tolerateMissing(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
