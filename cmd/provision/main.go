// Command provision obtains a UCI engine binary for the analysis server,
// either from a release archive or by building from source.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/chess-coach/internal/provision"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	prov := provision.New(logger)

	var destDir string

	rootCmd := &cobra.Command{
		Use:   "provision",
		Short: "Obtain a UCI engine binary for game analysis",
		Long: `Downloads an official engine release or builds one from source,
verifies the binary runs on this machine, and installs it into the
destination directory. Point ENGINE_PATH at the installed binary.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&destDir, "dest", "d", "bin", "directory to install the engine into")

	downloadCmd := &cobra.Command{
		Use:   "download <archive-url>",
		Short: "Download and install an engine release archive (.tar, .tar.gz, or .zip)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := prov.DownloadRelease(cmd.Context(), args[0], destDir)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	var arch, comp string
	buildCmd := &cobra.Command{
		Use:   "build <git-repo-url>",
		Short: "Clone an engine repository and build it with make",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := prov.BuildFromSource(cmd.Context(), args[0], destDir, arch, comp)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	buildCmd.Flags().StringVar(&arch, "arch", "x86-64", "makefile ARCH value")
	buildCmd.Flags().StringVar(&comp, "comp", "gcc", "makefile COMP value")

	rootCmd.AddCommand(downloadCmd, buildCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
