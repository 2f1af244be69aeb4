package structs

import "cavision/models"

// UpdateProfileRequest carries only the fields the user wants to change.
type UpdateProfileRequest struct {
	DisplayName *string             `json:"displayName"`
	Bio         *string             `json:"bio"`
	City        *string             `json:"city"`
	CALevel     *string             `json:"caLevel"`
	PhotoURL    *string             `json:"photoURL"`
	SocialLinks *models.SocialLinks `json:"socialLinks"`
}
