package models

import "time"

type SocialLinks struct {
	Twitter   string `bson:"twitter,omitempty" json:"twitter,omitempty"`
	LinkedIn  string `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	Instagram string `bson:"instagram,omitempty" json:"instagram,omitempty"`
}

// UserProfile is the users/{id} document.
type UserProfile struct {
	ID                    string      `bson:"_id" json:"id"`
	Email                 string      `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName           string      `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Bio                   string      `bson:"bio,omitempty" json:"bio,omitempty"`
	City                  string      `bson:"city,omitempty" json:"city,omitempty"`
	CALevel               string      `bson:"caLevel,omitempty" json:"caLevel,omitempty"`
	PhotoURL              string      `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	SocialLinks           SocialLinks `bson:"socialLinks,omitempty" json:"socialLinks"`
	IsAnonymous           bool        `bson:"isAnonymous" json:"isAnonymous"`
	TotalQuizzesGenerated int64       `bson:"totalQuizzesGenerated" json:"totalQuizzesGenerated"`
	TotalMcqsAttempted    int64       `bson:"totalMcqsAttempted" json:"totalMcqsAttempted"`
	TotalMcqsCorrect      int64       `bson:"totalMcqsCorrect" json:"totalMcqsCorrect"`
	CreatedAt             time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// Accuracy is the share of attempted questions answered correctly, in percent.
func (p UserProfile) Accuracy() float64 {
	if p.TotalMcqsAttempted == 0 {
		return 0
	}
	return float64(p.TotalMcqsCorrect) * 100 / float64(p.TotalMcqsAttempted)
}

// ProfileUpdate carries the fields to merge into a profile; nil fields are left untouched.
type ProfileUpdate struct {
	Email       *string
	DisplayName *string
	Bio         *string
	City        *string
	CALevel     *string
	PhotoURL    *string
	SocialLinks *SocialLinks
	IsAnonymous *bool
}

// StatsDelta is an atomic increment applied to the running counters.
type StatsDelta struct {
	Generated int64
	Attempted int64
	Correct   int64
}

func (d StatsDelta) IsZero() bool {
	return d.Generated == 0 && d.Attempted == 0 && d.Correct == 0
}
