// Package auth resolves the Gemini API credential for a request.
package auth

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// ResolveAPIKey returns the credential to use for one analysis request.
// Priority order:
//  1. the key supplied in the request body
//  2. the GEMINI_API_KEY environment variable
func ResolveAPIKey(requestKey string) (string, error) {
	if requestKey != "" {
		return requestKey, nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}
	return "", fmt.Errorf("API key not found: supply apiKey in the request or set GEMINI_API_KEY")
}
