// Command bakeryctl runs the storefront's maintenance tasks: schema
// migrations, role assignment, test tokens and offline cake quotes.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()
	telemetry.InitLogger(os.Getenv("LOG_LEVEL"))

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&migrateCmd{}, "database")
	subcommands.Register(&roleCmd{}, "database")
	subcommands.Register(&tokenCmd{}, "auth")
	subcommands.Register(&priceCmd{}, "pricing")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
