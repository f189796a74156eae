package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetChatrelayStateHome returns a directory path for storing chatrelay state
// (logs, traces). It creates the directory if needed, following XDG conventions.
// Can be overridden by setting the CHATRELAY_STATE_HOME environment variable.
func GetChatrelayStateHome() (string, error) {
	stateDir := os.Getenv("CHATRELAY_STATE_HOME")
	if stateDir != "" {
		err := os.MkdirAll(stateDir, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create chatrelay state directory from CHATRELAY_STATE_HOME: %w", err)
		}
		return stateDir, nil
	}

	stateDir = filepath.Join(xdg.StateHome, "chatrelay")
	err := os.MkdirAll(stateDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create chatrelay state directory: %w", err)
	}
	return stateDir, nil
}
