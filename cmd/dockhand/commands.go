package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/moby/moby/api/types/container"
	"github.com/spf13/cobra"

	"github.com/ryanmoran/dockhand"
	"github.com/ryanmoran/dockhand/internal/cleanup"
	"github.com/ryanmoran/dockhand/stream"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show engine version details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docker, err := connect()
			if err != nil {
				return err
			}

			version, err := docker.Version(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Engine:      %s\n", version.Version)
			fmt.Printf("API version: %s\n", version.APIVersion)
			fmt.Printf("Go version:  %s\n", version.GoVersion)
			fmt.Printf("OS/Arch:     %s/%s\n", version.Os, version.Arch)
			return nil
		},
	}
}

func psCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docker, err := connect()
			if err != nil {
				return err
			}

			summaries, err := docker.Containers().List(cmd.Context(), &dockhand.ContainerListOptions{All: all})
			if err != nil {
				return err
			}

			for _, summary := range summaries {
				name := ""
				if len(summary.Names) > 0 {
					name = strings.TrimPrefix(summary.Names[0], "/")
				}
				fmt.Printf("%.12s  %-24s  %-16s  %s\n", summary.ID, summary.Image, summary.State, name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include stopped containers")
	return cmd
}

func logsCommand() *cobra.Command {
	var follow bool
	var tail string

	cmd := &cobra.Command{
		Use:   "logs <container>",
		Short: "Fetch a container's logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docker, err := connect()
			if err != nil {
				return err
			}

			logs, err := docker.Containers().Get(args[0]).Logs(cmd.Context(), &dockhand.LogsOptions{
				Follow: follow,
				Stdout: true,
				Stderr: true,
				Tail:   tail,
			})
			if err != nil {
				return err
			}
			defer logs.Close()

			_, err = stream.Copy(os.Stdout, os.Stderr, logs)
			return err
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	cmd.Flags().StringVar(&tail, "tail", "", "number of lines to show from the end")
	return cmd
}

func pullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <reference>",
		Short: "Pull an image from a registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docker, err := connect()
			if err != nil {
				return err
			}

			progress, err := docker.Images().Pull(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}
			defer progress.Close()

			for {
				var update struct {
					Status string `json:"status"`
					ID     string `json:"id"`
					Error  string `json:"error"`
				}
				err := progress.Decode(&update)
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				if update.Error != "" {
					return fmt.Errorf("pull failed: %s", update.Error)
				}
				if update.ID != "" {
					log.Info(update.Status, "layer", update.ID)
				} else if update.Status != "" {
					log.Info(update.Status)
				}
			}
		},
	}
}

func eventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream engine events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docker, err := connect()
			if err != nil {
				return err
			}

			feed, err := docker.Events(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer feed.Close()

			for {
				message, err := dockhand.NextEvent(feed)
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				log.Info("event", "type", message.Type, "action", message.Action, "actor", message.Actor.ID)
			}
		},
	}
}

func execCommand() *cobra.Command {
	var tty bool

	cmd := &cobra.Command{
		Use:   "exec <container> <command> [args...]",
		Short: "Run a command in a running container",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docker, err := connect()
			if err != nil {
				return err
			}

			mgr := cleanup.NewManager()
			defer mgr.Execute(func(name string, err error) {
				log.Warn("cleanup failed", "resource", name, "error", err)
			})

			exec, err := docker.Containers().Get(args[0]).ExecCreate(cmd.Context(), container.ExecCreateRequest{
				Cmd:          args[1:],
				Tty:          tty,
				AttachStdin:  true,
				AttachStdout: true,
				AttachStderr: true,
			})
			if err != nil {
				return err
			}

			conn, err := exec.Start(cmd.Context(), tty)
			if err != nil {
				return err
			}
			mgr.Add("exec-connection", conn.Close)

			session := dockhand.NewSession(conn, tty, exec.Resize)
			err = session.Run(cmd.Context())
			if err != nil {
				return err
			}

			inspect, err := exec.Inspect(cmd.Context())
			if err != nil {
				return err
			}
			if inspect.ExitCode != nil && *inspect.ExitCode != 0 {
				return fmt.Errorf("command exited with status %d", *inspect.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&tty, "tty", "t", false, "allocate a pseudo-terminal")
	return cmd
}
