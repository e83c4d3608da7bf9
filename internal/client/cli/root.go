package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	if a.email == "" || !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s)", a.email)
}

// Root runs the REPL on the App's input until exit or EOF. Commands read
// their prompts from the same reader.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to gophauth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
