package proto

import "fmt"

// User attribute names.
const (
	UserAttribute_PhoneNumber         = "phone_number"
	UserAttribute_PhoneNumberVerified = "phone_number_verified"
	UserAttribute_Email               = "email"
	UserAttribute_EmailVerified       = "email_verified"
)

// Challenge parameter names.
const (
	PublicParameter_PhoneNumber = "phoneNumber"
	PublicParameter_Email       = "email"
	PrivateParameter_Code       = "code"
)

// Channel is the out-of-band channel a one-time code is delivered through.
type Channel string

const (
	Channel_SMS   Channel = "sms"
	Channel_Email Channel = "email"
)

func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case Channel_SMS, Channel_Email:
		return Channel(s), nil
	}
	return "", fmt.Errorf("invalid channel: %q", s)
}

// UserAttribute is the user attribute holding the channel's contact address.
func (c Channel) UserAttribute() string {
	switch c {
	case Channel_Email:
		return UserAttribute_Email
	default:
		return UserAttribute_PhoneNumber
	}
}

// PublicParameter is the public challenge parameter exposing the contact address.
func (c Channel) PublicParameter() string {
	switch c {
	case Channel_Email:
		return PublicParameter_Email
	default:
		return PublicParameter_PhoneNumber
	}
}
