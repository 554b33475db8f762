package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FeedbackKind classifies one feedback item of a review.
type FeedbackKind string

const (
	FeedbackRoast      FeedbackKind = "roast"
	FeedbackIssue      FeedbackKind = "issue"
	FeedbackSuggestion FeedbackKind = "suggestion"
	FeedbackPositive   FeedbackKind = "positive"
)

type FeedbackItem struct {
	Type    FeedbackKind `json:"type"`
	Message string       `json:"message"`
}

// Metrics are per-dimension quality scores, each in [0,100].
type Metrics struct {
	Readability     int `json:"readability"`
	Maintainability int `json:"maintainability"`
	Efficiency      int `json:"efficiency"`
	BestPractices   int `json:"bestPractices"`
	Security        int `json:"security"`
}

// ReviewResult is the structured review returned to callers.
type ReviewResult struct {
	Score    int            `json:"score"`
	Summary  string         `json:"summary"`
	Feedback []FeedbackItem `json:"feedback"`
	Metrics  Metrics        `json:"metrics"`
}

// CodeReview is a persisted review. Rows are append-only.
type CodeReview struct {
	Id        string                            `json:"id" gorm:"primaryKey"`
	UserId    string                            `json:"-" gorm:"not null;index:idx_code_reviews_user_created,priority:1"`
	Code      string                            `json:"code" gorm:"type:text;not null"`
	Language  string                            `json:"language" gorm:"not null"`
	Score     int                               `json:"score"`
	Summary   string                            `json:"summary" gorm:"type:text"`
	Feedback  datatypes.JSONSlice[FeedbackItem] `json:"feedback" gorm:"type:jsonb"`
	Metrics   datatypes.JSONType[Metrics]       `json:"metrics" gorm:"type:jsonb"`
	CreatedAt time.Time                         `json:"createdAt" gorm:"index:idx_code_reviews_user_created,priority:2"`
}

func (review *CodeReview) BeforeCreate(tx *gorm.DB) (err error) {
	if review.Id == "" {
		review.Id = uuid.NewString()
	}
	return
}

// NewCodeReview builds the row stored for a submission.
func NewCodeReview(userID, code, language string, result ReviewResult) *CodeReview {
	return &CodeReview{
		UserId:   userID,
		Code:     code,
		Language: language,
		Score:    result.Score,
		Summary:  result.Summary,
		Feedback: datatypes.JSONSlice[FeedbackItem](result.Feedback),
		Metrics:  datatypes.NewJSONType(result.Metrics),
	}
}

// Result returns the structured review stored in the row.
func (review *CodeReview) Result() ReviewResult {
	return ReviewResult{
		Score:    review.Score,
		Summary:  review.Summary,
		Feedback: []FeedbackItem(review.Feedback),
		Metrics:  review.Metrics.Data(),
	}
}
