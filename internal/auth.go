package internal

import (
	"errors"
	"fmt"
	"os/user"

	"github.com/msteinert/pam"
)

// NewPamAuthenticator creates a new PAM authenticator
func NewPamAuthenticator(config Configuration) *PamAuthenticator {
	currentUser, err := user.Current()
	username := "nobody"
	if err == nil {
		username = currentUser.Username
	}

	return &PamAuthenticator{
		serviceName: config.PamService,
		username:    username,
	}
}

// Authenticate attempts to authenticate with the given password
func (a *PamAuthenticator) Authenticate(password string) AuthResult {
	// Define the conversation function that provides the password
	conv := func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return password, nil
		case pam.PromptEchoOn:
			// Ignore username prompts as we already provided it
			return "", nil
		case pam.ErrorMsg:
			Info("PAM error: %s", msg)
			return "", nil
		case pam.TextInfo:
			Info("PAM info: %s", msg)
			return "", nil
		default:
			return "", errors.New("unexpected conversation style")
		}
	}

	t, err := pam.StartFunc(a.serviceName, a.username, conv)
	if err != nil {
		return AuthResult{
			Success: false,
			Message: fmt.Sprintf("Failed to start PAM transaction: %v", err),
		}
	}

	if err := t.Authenticate(0); err != nil {
		return AuthResult{
			Success: false,
			Message: fmt.Sprintf("Authentication failed: %v", err),
		}
	}

	if err := t.AcctMgmt(0); err != nil {
		return AuthResult{
			Success: false,
			Message: fmt.Sprintf("Account validation failed: %v", err),
		}
	}

	return AuthResult{
		Success: true,
		Message: "Authentication successful",
	}
}
