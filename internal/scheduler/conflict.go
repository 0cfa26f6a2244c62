package scheduler

import "time"

// GuardBand widens a proposed interview window on both sides before it is compared
// against existing bookings.
const GuardBand = time.Minute

// Booking is an existing confirmed, non-deleted interview occupying its participants.
type Booking struct {
	InterviewID string
	CandidateID int64
	PanelistIDs []int64
	Start       time.Time
	End         time.Time
}

// Proposal describes the interview a caller wants to create or move.
type Proposal struct {
	CandidateID int64
	PanelistIDs []int64
	Start       time.Time
	End         time.Time
	// ExcludeInterviewID skips the booking being rescheduled.
	ExcludeInterviewID string
}

// ActorType identifies which participant of a proposal is already busy.
type ActorType string

const (
	// ActorCandidate indicates the candidate is double-booked.
	ActorCandidate ActorType = "candidate"
	// ActorPanelist indicates one of the panelists is unavailable.
	ActorPanelist ActorType = "panelist"
)

// Conflict details the first clash found for a proposal.
type Conflict struct {
	Actor           ActorType
	ActorID         int64
	WithInterviewID string
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2) intersect.
// Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// GuardedWindow returns [start-GuardBand, end+GuardBand).
func GuardedWindow(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-GuardBand), end.Add(GuardBand)
}

// Validate checks the proposal against existing bookings. The candidate is checked
// first, then each panelist in the order supplied by the caller. It returns nil when
// the proposal is admissible.
func Validate(existing []Booking, proposal Proposal) *Conflict {
	from, to := GuardedWindow(proposal.Start, proposal.End)

	active := make([]Booking, 0, len(existing))
	for _, booking := range existing {
		if proposal.ExcludeInterviewID != "" && booking.InterviewID == proposal.ExcludeInterviewID {
			continue
		}
		if !Overlaps(from, to, booking.Start, booking.End) {
			continue
		}
		active = append(active, booking)
	}

	for _, booking := range active {
		if booking.CandidateID == proposal.CandidateID {
			return &Conflict{
				Actor:           ActorCandidate,
				ActorID:         proposal.CandidateID,
				WithInterviewID: booking.InterviewID,
			}
		}
	}

	for _, panelistID := range proposal.PanelistIDs {
		for _, booking := range active {
			if containsID(booking.PanelistIDs, panelistID) {
				return &Conflict{
					Actor:           ActorPanelist,
					ActorID:         panelistID,
					WithInterviewID: booking.InterviewID,
				}
			}
		}
	}

	return nil
}

func containsID(ids []int64, target int64) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
