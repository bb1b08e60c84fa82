package common

import (
	"regexp"
	"strings"
)

var (
	emailRegex     = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	expoTokenRegex = regexp.MustCompile(`^Expo(nent)?PushToken\[[A-Za-z0-9_\-]+\]$`)
	fcmTokenRegex  = regexp.MustCompile(`^[A-Za-z0-9_\-]+:[A-Za-z0-9_\-]{20,}$`)
)

// MaxPushTokenLength matches the push_tokens.token column.
const MaxPushTokenLength = 512

// ValidatePushToken accepts Expo push tokens and FCM registration tokens.
func ValidatePushToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return BadRequest("push token is required")
	}
	if len(token) > MaxPushTokenLength {
		return BadRequest("push token is too long")
	}
	if !IsExpoPushToken(token) && !fcmTokenRegex.MatchString(token) {
		return BadRequest("malformed push token")
	}
	return nil
}

func IsExpoPushToken(token string) bool {
	return expoTokenRegex.MatchString(token)
}

func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return BadRequest("email is required")
	}
	if !emailRegex.MatchString(email) {
		return BadRequest("invalid email format")
	}
	return nil
}
