package common

import (
	"fmt"
	"os"
	"strconv"
)

const defaultServerPort = 8866

const defaultServerHost = "127.0.0.1"

func GetServerHost() string {
	host := os.Getenv("CHATRELAY_SERVER_HOST")
	if host == "" {
		return defaultServerHost
	}
	return host
}

// GetServerPort returns the relay port from CHATRELAY_SERVER_PORT, falling back
// to the default. An unparsable value is a startup misconfiguration.
func GetServerPort() int {
	port := os.Getenv("CHATRELAY_SERVER_PORT")
	if port == "" {
		return defaultServerPort
	}

	intPort, err := strconv.Atoi(port)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse chatrelay server port: %s", port))
	}
	return intPort
}

func GetServerHostPort() string {
	return fmt.Sprintf("%s:%d", GetServerHost(), GetServerPort())
}

// GetServerURL is the base URL clients use to reach the relay. CHATRELAY_URL
// overrides it, eg when the relay runs on another machine.
func GetServerURL() string {
	if url := os.Getenv("CHATRELAY_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("http://localhost:%d", GetServerPort())
}
