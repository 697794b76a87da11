package cmd

import (
	"fmt"

	"github.com/marianfoo/bluesky-bots/bluesky"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"
)

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Verify Bluesky credentials",
		Description: `Checks that a handle and app password can create a session on the
configured PDS and prints the resolved DID.

Useful before wiring the credentials into the environment of the run
command.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "pds",
				Value:   bluesky.DefaultPDSHost,
				Usage:   "PDS host to create the session against",
				EnvVars: []string{"BOTS_PDS_HOST"},
			},
		},
		Action: func(ctx *cli.Context) error {
			handle, err := prompt.New().Ask("Handle:").Input("myname.bsky.social")
			if err != nil {
				return err
			}

			password, err := prompt.New().Ask("App password:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}

			client, err := bluesky.ClientFromCredentials(ctx.Context, ctx.String("pds"), &bluesky.Credentials{
				Identifier: handle,
				Password:   password,
			})
			if err != nil {
				return fmt.Errorf("could not create client with provided credentials: %w", err)
			}

			fmt.Println("Session created for", client.Handle())
			fmt.Println("DID:", client.Did())
			return nil
		},
	}
}
