package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

type App struct {
	config *config.Config
	client client.Client
	email  string
	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewAccountClient(c.ServerEndpointAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	return &App{config: c, client: apiClient, reader: bufio.NewReader(os.Stdin)}, nil
}

// Run starts the REPL and closes the connection when it returns.
func (a *App) Run(ctx context.Context) error {
	defer a.client.Close()
	a.Root(ctx)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.client.LoggedIn()
}
