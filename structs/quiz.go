package structs

// GenerateQuizRequest asks for questions from the syllabus catalogue.
type GenerateQuizRequest struct {
	Level      string `json:"level" binding:"required,oneof=Foundation Intermediate Final"`
	Group      string `json:"group" binding:"omitempty,oneof='Group I' 'Group II'"`
	Subject    string `json:"subject" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required,oneof=Easy Medium Hard"`
	Count      int    `json:"count" binding:"required,min=5,max=50"`
	Seed       *int64 `json:"seed"`
}

// UploadQuizForm is the non-file part of the multipart upload.
type UploadQuizForm struct {
	Difficulty string `form:"difficulty" binding:"required,oneof=Easy Medium Hard"`
	Count      int    `form:"count" binding:"required,min=5,max=50"`
	Subject    string `form:"subject"`
	Seed       *int64 `form:"seed"`
}

type SelectOptionRequest struct {
	Label string `json:"label" binding:"required"`
}

type GoToRequest struct {
	Index *int `json:"index" binding:"required"`
}
