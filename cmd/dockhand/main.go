// Command dockhand is a small demonstration client for the Docker Engine
// API, built on the dockhand library.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ryanmoran/dockhand"
)

var (
	flagHost      string
	flagCertPath  string
	flagTLSVerify bool
	flagVerbose   bool
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigchan
		cancel()
	}()

	root := &cobra.Command{
		Use:           "dockhand",
		Short:         "Talk to a Docker engine over tcp, tls, or a local socket",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&flagHost, "host", "", "engine endpoint (defaults to DOCKER_HOST, then the local socket)")
	root.PersistentFlags().StringVar(&flagCertPath, "cert-path", "", "directory of PEM files enabling TLS (defaults to DOCKER_CERT_PATH)")
	root.PersistentFlags().BoolVar(&flagTLSVerify, "tlsverify", false, "verify the engine's TLS certificate")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		versionCommand(),
		psCommand(),
		logsCommand(),
		pullCommand(),
		eventsCommand(),
		execCommand(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

// connect builds a client from the environment, letting flags override it.
func connect() (*dockhand.Docker, error) {
	config := dockhand.ParseEnv(os.Environ())
	if flagHost != "" {
		config.Host = flagHost
	}
	if flagCertPath != "" {
		config.CertPath = flagCertPath
	}
	if flagTLSVerify {
		config.TLSVerify = true
	}

	log.Debug("connecting to engine", "host", config.Host)
	return dockhand.New(config)
}
