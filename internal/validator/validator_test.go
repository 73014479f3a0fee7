package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommentRejectsWhitespace(t *testing.T) {
	v := New()
	err := v.Struct(&CommentInput{Text: "   \t"})

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 1)
	require.Equal(t, "comment", ve[0].Field)
	require.Equal(t, "notblank", ve[0].Rule)
	require.Equal(t, "Comment is required", ve.Error())

	require.NoError(t, v.Struct(&CommentInput{Text: "on it"}))
}

func TestRegisterPasswordMismatch(t *testing.T) {
	err := New().Struct(&RegisterInput{
		Username:        "aisyah",
		Email:           "aisyah@example.test",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	})
	require.EqualError(t, err, "Passwords do not match")
}

func TestCreateReportMissingFields(t *testing.T) {
	err := New().Struct(&CreateReportInput{StudentID: "A19EC0001", Category: "civil"})

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	fields := map[string]bool{}
	for _, e := range ve {
		fields[e.Field] = true
	}
	require.Equal(t, map[string]bool{"location": true, "roomNo": true, "description": true}, fields)
}

func TestHumanize(t *testing.T) {
	require.Equal(t, "Room no", humanize("roomNo"))
	require.Equal(t, "Email", humanize("email"))
}
