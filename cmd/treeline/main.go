package main

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/treelinehq/treeline/internal/config"
	"github.com/treelinehq/treeline/internal/gitrepo"
	"github.com/treelinehq/treeline/internal/utils/errutils"
	"github.com/treelinehq/treeline/internal/utils/stringutils"
)

var rootFlags struct {
	Debug     bool
	Directory string
}

var RootCmd = &cobra.Command{
	Use: "treeline",

	// Don't automatically print errors or usage information (we handle that ourselves).
	SilenceErrors: true,
	SilenceUsage:  true,

	// Don't show "completion" command in help menu
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},

	// Run setup before invoking any child commands.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootFlags.Debug {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.WithField("treeline_version", config.Version).Debug("enabled debug logging")
		}

		var configDirs []string
		repo, err := getRepo()
		// If we weren't able to load the repo, the command is probably just
		// not being run from inside one; repo-local config is skipped.
		if err != nil {
			logrus.WithError(err).Debug("unable to load repo (probably not inside a repo)")
		} else {
			configDirs = append(configDirs, repo.WorkdirRoot()+"/.git/treeline")
		}

		didLoadConfig, err := config.Load(configDirs)
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		if didLoadConfig {
			logrus.Debug("loaded configuration")
		} else {
			logrus.Debug("no configuration found")
		}

		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(
		&rootFlags.Debug, "debug", false,
		"enable verbose debug logging",
	)
	RootCmd.PersistentFlags().StringVarP(
		&rootFlags.Directory, "repo", "C", "",
		"directory to use for the repository",
	)
	RootCmd.AddCommand(
		diffCmd,
		stashCmd,
		versionCmd,
	)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		// In debug mode, show more detailed information about the error
		// (including the stack trace if using pkg/errors).
		if rootFlags.Debug {
			stackTrace := fmt.Sprintf("%+v", err)
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n%s\n", err, stringutils.Indent(stackTrace, "\t"))
		} else if pathErr, ok := errutils.As[*os.PathError](err); ok {
			_, _ = fmt.Fprintf(os.Stderr, "error: cannot access %s: %s\n", pathErr.Path, pathErr.Err)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}

		os.Exit(1)
	}
}

var cachedRepo *gitrepo.Repo

func getRepo() (*gitrepo.Repo, error) {
	if cachedRepo == nil {
		dir := rootFlags.Directory
		if dir == "" {
			var err error
			if dir, err = os.Getwd(); err != nil {
				return nil, errors.Wrap(err, "failed to determine working directory")
			}
		}
		repo, err := gitrepo.Open(dir)
		if err != nil {
			return nil, err
		}
		cachedRepo = repo
	}
	return cachedRepo, nil
}
