package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tessera-apps/tessera/internal/ipc"
)

// terminalPrompts answers credential prompts on the controlling terminal.
// Used when the workbench runs from a shell; a GUI shell replaces it with
// a dialog-based handler.
type terminalPrompts struct{}

// PromptCredentials collects a username and secret for the authority.
// Declines when stdin is not a terminal: a background launch has nobody
// to ask.
func (terminalPrompts) PromptCredentials(ctx context.Context, req *ipc.CredentialPromptRequest) (*ipc.CredentialPromptReply, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no terminal available to prompt for %s", req.Authority)
	}

	if req.Realm != "" {
		fmt.Fprintf(os.Stderr, "\nCredentials required for %s (realm %q)\n", req.Authority, req.Realm)
	} else {
		fmt.Fprintf(os.Stderr, "\nCredentials required for %s\n", req.Authority)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		// Empty username means the prompt was dismissed
		return &ipc.CredentialPromptReply{}, nil
	}

	// Read the secret with echo disabled
	fmt.Fprint(os.Stderr, "Password: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	remember, err := promptYesNo(reader, "Remember these credentials? [y/N]: ")
	if err != nil {
		return nil, err
	}

	return &ipc.CredentialPromptReply{
		Username: username,
		Secret:   string(secret),
		Remember: remember,
	}, nil
}

// promptYesNo asks a yes/no question, defaulting to no.
func promptYesNo(reader *bufio.Reader, question string) (bool, error) {
	fmt.Fprint(os.Stderr, question)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
