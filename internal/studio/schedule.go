package studio

import (
	"context"
	"strings"
	"time"

	"instapoem/internal/history"
	"instapoem/internal/logging"
	"instapoem/internal/media"
)

// ScheduleRequest describes a simulated post.
type ScheduleRequest struct {
	At time.Time
	// Hashtags is comma-separated user input.
	Hashtags string
	// Caption replaces the current caption when non-empty.
	Caption string
}

// Schedule records a post time on the record after a simulated delay.
// Nothing is ever dispatched; the timestamp is inert metadata.
func (s *Studio) Schedule(ctx context.Context, id string, req ScheduleRequest) (history.Record, error) {
	if req.At.IsZero() {
		return history.Record{}, media.Invalid("scheduledAt", "please select a date and time for your post")
	}
	if req.At.Before(s.now()) {
		return history.Record{}, media.Invalid("scheduledAt", "scheduled time cannot be in the past")
	}
	if _, err := s.get(id); err != nil {
		return history.Record{}, err
	}

	if err := s.simulatePost(ctx); err != nil {
		return history.Record{}, err
	}

	at := req.At
	hashtags := ParseHashtags(req.Hashtags)
	rec, ok := s.store.Update(ctx, id, func(r *history.Record) {
		r.ScheduledAt = &at
		r.Hashtags = hashtags
		if strings.TrimSpace(req.Caption) != "" {
			r.Caption = req.Caption
		}
	})
	if !ok {
		return history.Record{}, notFound("record", id)
	}

	logging.Schedule("Record %s will be \"posted\" at %s", id, at.Format(time.RFC3339))
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditPostScheduled,
		RecordID:  id,
		Success:   true,
		Fields:    map[string]interface{}{"at": at.Format(time.RFC3339), "hashtags": len(rec.Hashtags)},
	})
	return rec, nil
}

// Unschedule clears the post time.
func (s *Studio) Unschedule(ctx context.Context, id string) (history.Record, error) {
	wasScheduled := false
	rec, ok := s.store.Update(ctx, id, func(r *history.Record) {
		wasScheduled = r.ScheduledAt != nil
		r.ScheduledAt = nil
	})
	if !ok {
		return history.Record{}, notFound("record", id)
	}
	if !wasScheduled {
		return rec, nil
	}
	logging.Schedule("Record %s unscheduled", id)
	logging.AuditOK(logging.AuditPostUnscheduled, id, "")
	return rec, nil
}

// Scheduled lists scheduled records, earliest first.
func (s *Studio) Scheduled() []history.Record {
	return s.store.Scheduled()
}

func (s *Studio) simulatePost(ctx context.Context) error {
	if s.scheduleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(s.scheduleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ParseHashtags splits comma-separated input, trimming entries and
// dropping empty ones. Order is kept.
func ParseHashtags(input string) []string {
	tags := []string{}
	for _, part := range strings.Split(input, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
