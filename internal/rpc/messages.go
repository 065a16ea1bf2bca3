package rpc

import (
	"bytes"
	"encoding/json"
	"time"
)

// Amount is a monetary value in cents as sent by a client. It accepts a JSON
// number or a string and keeps the literal text; the server decides whether
// it is a valid positive integer.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

type Empty struct{}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type PingResponse struct {
	App     string `json:"app"`
	Version string `json:"version"`
}

type GetTokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type GetTokenResponse struct {
	Token string `json:"token"`
	// ExpiresIn is the session lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

type NewUserRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RecoveryMethod string `json:"recoveryMethod"`
	Email          string `json:"email,omitempty"`
}

// PhraseResponse reports success and, when a recovery phrase was generated,
// its words. The phrase is only ever sent once.
type PhraseResponse struct {
	Success bool     `json:"success"`
	Phrase  []string `json:"phrase,omitempty"`
}

type Settings struct {
	TransactionLogging    bool    `json:"transactionLogging"`
	SMSNotificationNumber *string `json:"smsNotificationNumber"`
	RecoveryMethod        string  `json:"recoveryMethod"`
	Email                 string  `json:"email,omitempty"`
	EmailVerified         bool    `json:"emailVerified,omitempty"`
}

// ApplySettingsRequest carries the raw settings object so unknown keys and
// loosely typed values reach the service for validation.
type ApplySettingsRequest struct {
	Settings map[string]any `json:"settings"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

type Transaction struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Value     int64     `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type SendRequest struct {
	Receiver string `json:"receiver"`
	Value    Amount `json:"value"`
}

type SendResponse struct {
	Success bool  `json:"success"`
	Balance int64 `json:"balance"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type ConfirmEmailRequest struct {
	Token string `json:"token"`
}

type AddMoneyRequest struct {
	Receiver string `json:"receiver"`
	Value    Amount `json:"value"`
}
