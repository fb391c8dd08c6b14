package httpapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/kasupel/server/internal/core"
)

var validate = validator.New()

// wrapValidation turns the first validator.ValidationErrors entry into
// the spec §7 malformed-request taxonomy, the same "parse then
// validate" two-step the teacher's validationMiddleware runs, just
// without the fiber.Ctx coupling so [E] and plain-body endpoints share
// it.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return core.NewError(core.CodeWrongParams, err.Error())
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return core.NewError(core.CodeValueRequired, fe.Field()+" is required")
	}
	return core.NewError(core.CodeWrongParams, fe.Field()+" failed "+fe.Tag()+" validation")
}

// LoginRequest is POST /accounts/login's [E] body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Token    string `json:"token" validate:"required,base64"` // 32 raw bytes, base64-encoded
}

// CreateAccountRequest is POST /accounts/create's [E] body.
type CreateAccountRequest struct {
	Username string `json:"username" validate:"required,min=1,max=32"`
	Password string `json:"password" validate:"required,min=10,max=32"`
	Email    string `json:"email" validate:"required,email"`
}

// PatchAccountRequest is PATCH /accounts/me's [E] body; every field is
// optional, and only the ones present are applied.
type PatchAccountRequest struct {
	Password *string `json:"password,omitempty" validate:"omitempty,min=10,max=32"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Avatar   *string `json:"avatar,omitempty"` // base64, ≤1 MiB decoded, png/jpeg/gif/webp
}

// AckNotificationRequest is POST /accounts/notifications/ack's body.
type AckNotificationRequest struct {
	ID int64 `json:"id" validate:"required"`
}

// TimeControlRequest mirrors core.TimeControl on the wire for endpoints
// that accept one as part of a larger request body.
type TimeControlRequest struct {
	MainThinkingTime     int `json:"main_thinking_time" validate:"min=0"`
	FixedExtraTime       int `json:"fixed_extra_time" validate:"min=0"`
	TimeIncrementPerTurn int `json:"time_increment_per_turn" validate:"min=0"`
	Mode                 int `json:"mode" validate:"required"`
}

func (r TimeControlRequest) toCore() core.TimeControl {
	return core.TimeControl{
		MainThinkingTime:     r.MainThinkingTime,
		FixedExtraTime:       r.FixedExtraTime,
		TimeIncrementPerTurn: r.TimeIncrementPerTurn,
		Mode:                 core.GameMode(r.Mode),
	}
}

// FindGameRequest is POST /games/find's [E] body.
type FindGameRequest struct {
	TimeControl TimeControlRequest `json:"time_control" validate:"required"`
}

// SendInvitationRequest is POST /games/send_invitation's [E] body.
type SendInvitationRequest struct {
	Invitee     string              `json:"invitee" validate:"required"`
	TimeControl TimeControlRequest  `json:"time_control" validate:"required"`
}
