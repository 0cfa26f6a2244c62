package bootstrap

import (
	"slices"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/persistence"
)

func toPersistenceSlot(slot application.Slot) persistence.Slot {
	return persistence.Slot{
		ID:         slot.ID,
		PanelistID: slot.PanelistID,
		Start:      slot.Start,
		End:        slot.End,
		Status:     string(slot.Status),
		Deleted:    slot.Deleted,
		CreatedBy:  slot.CreatedBy,
		UpdatedBy:  slot.UpdatedBy,
		CreatedAt:  slot.CreatedAt,
		UpdatedAt:  slot.UpdatedAt,
	}
}

func toApplicationSlot(slot persistence.Slot) application.Slot {
	return application.Slot{
		ID:         slot.ID,
		PanelistID: slot.PanelistID,
		Start:      slot.Start,
		End:        slot.End,
		Status:     application.SlotStatus(slot.Status),
		Deleted:    slot.Deleted,
		CreatedBy:  slot.CreatedBy,
		UpdatedBy:  slot.UpdatedBy,
		CreatedAt:  slot.CreatedAt,
		UpdatedAt:  slot.UpdatedAt,
	}
}

func toPersistenceInterview(interview application.Interview) persistence.Interview {
	return persistence.Interview{
		ID:          interview.ID,
		CandidateID: interview.CandidateID,
		HRID:        interview.HRID,
		SlotID:      interview.SlotID,
		PanelistIDs: slices.Clone(interview.PanelistIDs),
		Start:       interview.Start,
		End:         interview.End,
		Type:        interview.Type,
		Mode:        string(interview.Mode),
		Status:      string(interview.Status),
		Result:      string(interview.Result),
		Feedback:    interview.Feedback,
		Rating:      interview.Rating,
		Deleted:     interview.Deleted,
		CreatedBy:   interview.CreatedBy,
		UpdatedBy:   interview.UpdatedBy,
		CreatedAt:   interview.CreatedAt,
		UpdatedAt:   interview.UpdatedAt,
	}
}

func toApplicationInterview(interview persistence.Interview) application.Interview {
	return application.Interview{
		ID:          interview.ID,
		CandidateID: interview.CandidateID,
		HRID:        interview.HRID,
		SlotID:      interview.SlotID,
		PanelistIDs: slices.Clone(interview.PanelistIDs),
		Start:       interview.Start,
		End:         interview.End,
		Type:        interview.Type,
		Mode:        application.InterviewMode(interview.Mode),
		Status:      application.InterviewStatus(interview.Status),
		Result:      application.InterviewResult(interview.Result),
		Feedback:    interview.Feedback,
		Rating:      interview.Rating,
		Deleted:     interview.Deleted,
		CreatedBy:   interview.CreatedBy,
		UpdatedBy:   interview.UpdatedBy,
		CreatedAt:   interview.CreatedAt,
		UpdatedAt:   interview.UpdatedAt,
	}
}

func toPersistenceChangeRequest(request application.ChangeRequest) persistence.ChangeRequest {
	return persistence.ChangeRequest{
		ID:          request.ID,
		InterviewID: request.InterviewID,
		PanelID:     request.PanelID,
		Reason:      request.Reason,
		Status:      string(request.Status),
		CreatedBy:   request.CreatedBy,
		UpdatedBy:   request.UpdatedBy,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
}

func toApplicationChangeRequest(request persistence.ChangeRequest) application.ChangeRequest {
	return application.ChangeRequest{
		ID:          request.ID,
		InterviewID: request.InterviewID,
		PanelID:     request.PanelID,
		Reason:      request.Reason,
		Status:      application.ChangeRequestStatus(request.Status),
		CreatedBy:   request.CreatedBy,
		UpdatedBy:   request.UpdatedBy,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
}
