//go:build windows

package ipc

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/sys/windows"

	"github.com/tessera-apps/tessera/internal/constants"
)

// ResolveEndpoint derives the per-user named pipe. Pipe names share a flat
// global namespace, so the user SID is hashed into the name to keep logon
// sessions apart. runtimeDir is ignored; pipes are not filesystem objects.
func ResolveEndpoint(runtimeDir string) (Endpoint, error) {
	identity, err := currentUserSID()
	if err != nil {
		// Fall back to the username; weaker but still per-user
		identity = os.Getenv("USERDOMAIN") + "\\" + os.Getenv("USERNAME")
		if identity == "\\" {
			return Endpoint{}, fmt.Errorf("cannot determine user identity for pipe name: %w", err)
		}
	}

	sum := sha1.Sum([]byte(identity))
	short := hex.EncodeToString(sum[:])[:12]
	return Endpoint{Path: constants.PipePrefix + short}, nil
}

// currentUserSID returns the SID of the current process owner.
func currentUserSID() (string, error) {
	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		return "", fmt.Errorf("failed to open process token: %w", err)
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		return "", fmt.Errorf("failed to get token user: %w", err)
	}

	return user.User.Sid.String(), nil
}
