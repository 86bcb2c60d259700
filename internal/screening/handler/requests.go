package handler

import (
	"amora/internal/screening/models"

	dErrors "amora/pkg/domain-errors"

	id "amora/pkg/domain"
)

// StartRequest optionally hints the audience segment. The hint is only used
// when the caller's profile does not determine one.
type StartRequest struct {
	AudienceSegment string `json:"audience_segment,omitempty"`

	segment models.AudienceSegment
}

func (r *StartRequest) Validate() error {
	segment, err := models.ParseAudienceSegment(r.AudienceSegment)
	if err != nil {
		return err
	}
	r.segment = segment
	return nil
}

// ParsedSegment returns the validated segment hint.
func (r *StartRequest) ParsedSegment() models.AudienceSegment {
	return r.segment
}

// SubmitRequest carries one answered question. Single-select clients send
// answer_id; multi-select clients send answer_ids. Both forms may be mixed
// and are merged in submission order.
type SubmitRequest struct {
	QuestionID string   `json:"question_id"`
	AnswerID   string   `json:"answer_id,omitempty"`
	AnswerIDs  []string `json:"answer_ids,omitempty"`

	questionID id.QuestionID
	answerIDs  []id.AnswerID
}

func (r *SubmitRequest) Validate() error {
	questionID, err := id.ParseQuestionID(r.QuestionID)
	if err != nil {
		return err
	}
	r.questionID = questionID

	raw := r.AnswerIDs
	if r.AnswerID != "" {
		raw = append([]string{r.AnswerID}, raw...)
	}
	if len(raw) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one answer must be provided")
	}
	r.answerIDs = make([]id.AnswerID, 0, len(raw))
	for _, a := range raw {
		answerID, err := id.ParseAnswerID(a)
		if err != nil {
			return err
		}
		r.answerIDs = append(r.answerIDs, answerID)
	}
	return nil
}

// ParsedQuestionID returns the validated question id.
func (r *SubmitRequest) ParsedQuestionID() id.QuestionID {
	return r.questionID
}

// ParsedAnswerIDs returns the validated answer ids in submission order.
func (r *SubmitRequest) ParsedAnswerIDs() []id.AnswerID {
	return r.answerIDs
}
