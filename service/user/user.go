package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/propella-labs/go-propella/service/auth"
	"github.com/propella-labs/go-propella/service/logger"
	"github.com/propella-labs/go-propella/service/persist"
	"github.com/propella-labs/go-propella/validate"
)

// ErrInvalidOTP is returned when the submitted code doesn't match the pending one
var ErrInvalidOTP = errors.New("invalid OTP")

// ErrNoPendingOTP is returned when no OTP request is pending for the aadhaar number
var ErrNoPendingOTP = errors.New("no OTP request found for this aadhaar number")

// ErrOTPExpired is returned when the pending OTP outlived its validity window
var ErrOTPExpired = errors.New("OTP has expired, request a new one")

// ErrNoPhoneNumber is returned when OTP delivery is requested for a user with no
// registered phone
var ErrNoPhoneNumber = errors.New("no phone number registered for this aadhaar")

// MessageSender delivers a short message to a phone number
type MessageSender interface {
	Send(ctx context.Context, toNumber, message string) error
	Configured() bool
}

// CreateUserInput is the input for the user creation pipeline
type CreateUserInput struct {
	Name          string `json:"name" binding:"required"`
	AadhaarNumber string `json:"aadhaar_number" binding:"required,aadhaar"`
	PhoneNumber   string `json:"phone_number" binding:"required,indian_phone"`
	Email         string `json:"email"`
}

// SendOTPInput is the input for the OTP issuance pipeline
type SendOTPInput struct {
	AadhaarNumber string `json:"aadhaarNumber" binding:"required"`
}

// SendOTPOutput is the output of the OTP issuance pipeline
type SendOTPOutput struct {
	MaskedPhone string       `json:"maskedPhone"`
	UserID      persist.DBID `json:"userId"`
}

// VerifyOTPInput is the input for the OTP verification pipeline
type VerifyOTPInput struct {
	AadhaarNumber string `json:"aadhaarNumber" binding:"required"`
	OTP           string `json:"otp" binding:"required"`
}

// VerifyOTPOutput is the output of the OTP verification pipeline
type VerifyOTPOutput struct {
	Token    string       `json:"token"`
	UserID   persist.DBID `json:"userId"`
	UserName string       `json:"userName"`
}

// CreateUser validates the input and creates the user row, generating the user ID
// and a human-facing OWN- owner ID
func CreateUser(pCtx context.Context, pInput CreateUserInput, userRepo persist.UserRepository) (persist.User, error) {
	if err := validate.Struct(pInput); err != nil {
		return persist.User{}, err
	}

	userID := persist.GenerateID()
	ownerID := fmt.Sprintf("OWN-%s", strings.ToUpper(persist.GenerateID().String()[:8]))

	createdUser, err := userRepo.Create(pCtx, persist.CreateUserInput{
		ID:            userID,
		Name:          pInput.Name,
		AadhaarNumber: pInput.AadhaarNumber,
		PhoneNumber:   pInput.PhoneNumber,
		Email:         pInput.Email,
		OwnerID:       ownerID,
	})
	if err != nil {
		return persist.User{}, err
	}

	return createdUser, nil
}

// GetUser gets a user by ID
func GetUser(pCtx context.Context, pUserID persist.DBID, userRepo persist.UserRepository) (persist.User, error) {
	return userRepo.GetByID(pCtx, pUserID)
}

// SendOTP issues a fresh code for the user registered under the aadhaar number and
// delivers it by SMS. Delivery is best-effort: on failure the code is logged for
// operational fallback and issuance still succeeds.
func SendOTP(pCtx context.Context, pInput SendOTPInput, userRepo persist.UserRepository, otps *auth.OTPStore, sender MessageSender) (SendOTPOutput, error) {
	user, err := userRepo.GetByAadhaar(pCtx, pInput.AadhaarNumber)
	if err != nil {
		return SendOTPOutput{}, err
	}

	phone := user.PhoneNumber.String()
	if phone == "" {
		return SendOTPOutput{}, ErrNoPhoneNumber
	}

	code, err := otps.Issue(pInput.AadhaarNumber)
	if err != nil {
		return SendOTPOutput{}, fmt.Errorf("generating OTP: %w", err)
	}

	if sender != nil && sender.Configured() {
		message := fmt.Sprintf("Your Propella verification OTP is: %s. Valid for 10 minutes.", code)
		if err := sender.Send(pCtx, phone, message); err != nil {
			logger.For(pCtx).WithError(err).Warnf("failed to send OTP SMS, code for operational fallback: %s", code)
		}
	} else {
		logger.For(pCtx).Infof("SMS sender not configured, OTP for operational fallback: %s", code)
	}

	return SendOTPOutput{MaskedPhone: maskPhone(phone), UserID: user.ID}, nil
}

// VerifyOTP consumes the pending code for the aadhaar number and, on success,
// returns an opaque auth token with the user's identity
func VerifyOTP(pCtx context.Context, pInput VerifyOTPInput, userRepo persist.UserRepository, otps *auth.OTPStore) (VerifyOTPOutput, error) {
	switch otps.Verify(pInput.AadhaarNumber, pInput.OTP) {
	case auth.VerifyAccepted:
	case auth.VerifyInvalidCode:
		return VerifyOTPOutput{}, ErrInvalidOTP
	case auth.VerifyExpired:
		return VerifyOTPOutput{}, ErrOTPExpired
	default:
		return VerifyOTPOutput{}, ErrNoPendingOTP
	}

	user, err := userRepo.GetByAadhaar(pCtx, pInput.AadhaarNumber)
	if err != nil {
		return VerifyOTPOutput{}, err
	}

	return VerifyOTPOutput{
		Token:    persist.GenerateID().String(),
		UserID:   user.ID,
		UserName: user.Name.String(),
	}, nil
}

// maskPhone hides all but the last 4 digits of a phone number
func maskPhone(phone string) string {
	if len(phone) > 4 {
		return "XXXXXXXX" + phone[len(phone)-4:]
	}
	return "XXXXXXXXXXXX"
}
