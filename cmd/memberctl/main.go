package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/upb/membership-backend/cmd/memberctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Migrate     commands.MigrateCmd     `cmd:"" help:"Apply or roll back schema migrations"`
		Seed        commands.SeedCmd        `cmd:"" help:"Load organizations and users from a YAML fixture"`
		CreateAdmin commands.CreateAdminCmd `cmd:"" name:"create-admin" help:"Create a Super Admin account"`
		Token       commands.TokenCmd       `cmd:"" help:"Issue an access token for an existing user"`
		Debug       bool                    `help:"Enable debug logging."`
		Version     kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("memberctl"),
		kong.Description("Membership backend administration tool."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
