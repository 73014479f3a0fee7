package validator

// LoginInput is what the sign-in form collects.
type LoginInput struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Username        string `json:"username" validate:"notblank,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

type CommentInput struct {
	Text string `json:"comment" validate:"notblank,max=1000"`
}

type CreateReportInput struct {
	StudentID   string `json:"studentId" validate:"notblank"`
	Title       string `json:"title" validate:"omitempty,max=120"`
	Location    string `json:"location" validate:"notblank"`
	RoomNo      string `json:"roomNo" validate:"notblank"`
	Category    string `json:"category" validate:"notblank"`
	Description string `json:"description" validate:"notblank,max=2000"`
}

type AnnouncementInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"notblank"`
	ImageName   string `json:"image" validate:"notblank"`
	ImageSize   int    `json:"imageSize" validate:"gt=0"`
}

type ProfileInput struct {
	Username string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
}
