package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

type LoginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

type RegisterForm struct {
	Email           string `form:"email" binding:"required,email,max=120"`
	Password        string `form:"password" binding:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

type ResetRequestForm struct {
	Email string `form:"email" binding:"required,email"`
}

type NewPasswordForm struct {
	Password        string `form:"password" binding:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

var fieldLabels = map[string]string{
	"Email":           "Email",
	"Password":        "Password",
	"ConfirmPassword": "Password confirmation",
}

// describeBindError turns validator failures into one readable sentence per field.
func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid form submission."
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label := fieldLabels[fe.Field()]
		if label == "" {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, label+" is required.")
		case "email":
			msgs = append(msgs, "Enter a valid email address.")
		case "min":
			msgs = append(msgs, label+" must be at least "+fe.Param()+" characters.")
		case "max":
			msgs = append(msgs, label+" must be at most "+fe.Param()+" characters.")
		case "eqfield":
			msgs = append(msgs, "Passwords must match.")
		default:
			msgs = append(msgs, label+" is invalid.")
		}
	}
	return strings.Join(msgs, " ")
}
