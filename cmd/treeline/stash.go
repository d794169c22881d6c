package main

import (
	"fmt"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"

	"github.com/treelinehq/treeline/internal/config"
	"github.com/treelinehq/treeline/internal/gitrepo"
	"github.com/treelinehq/treeline/internal/stash"
)

var stashCmd = &cobra.Command{
	Use:   "stash",
	Short: "Stash away changes to the working tree",
}

var stashSaveFlags struct {
	Message          string
	IncludeUntracked bool
	IncludeIgnored   bool
	KeepIndex        bool
}

var stashSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the index and working tree state to the stash",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := getRepo()
		if err != nil {
			return err
		}

		var flags stash.Flag
		if stashSaveFlags.IncludeUntracked || config.Treeline.Stash.IncludeUntracked {
			flags |= stash.IncludeUntracked
		}
		if stashSaveFlags.IncludeIgnored {
			flags |= stash.IncludeIgnored
		}
		if stashSaveFlags.KeepIndex {
			flags |= stash.KeepIndex
		}

		oid, err := stash.Save(
			repo.StashRepository(),
			stashSignature(repo),
			stashSaveFlags.Message,
			flags,
		)
		if err != nil {
			return err
		}

		fmt.Printf("Saved working directory and index state (%s)\n", oid.String()[:7])
		return nil
	},
}

var stashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stashed states, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := getRepo()
		if err != nil {
			return err
		}

		return stash.Foreach(repo.StashRepository(),
			func(i int, message string, oid plumbing.Hash) error {
				fmt.Printf("stash@{%d}: %s\n", i, message)
				return nil
			})
	},
}

var stashDropCmd = &cobra.Command{
	Use:   "drop <position>",
	Short: "Remove a stashed state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		position, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Errorf("invalid stash position %q", args[0])
		}

		repo, err := getRepo()
		if err != nil {
			return err
		}

		if err := stash.Drop(repo.StashRepository(), position); err != nil {
			return err
		}
		fmt.Printf("Dropped stash@{%d}\n", position)
		return nil
	},
}

// stashSignature builds the stasher identity from the repository's
// user.name and user.email configuration.
func stashSignature(repo *gitrepo.Repo) object.Signature {
	sig := object.Signature{
		Name:  "treeline",
		Email: "treeline@localhost",
		When:  time.Now(),
	}
	if cfg, err := repo.GoGitRepo().Config(); err == nil {
		if cfg.User.Name != "" {
			sig.Name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			sig.Email = cfg.User.Email
		}
	}
	return sig
}

func init() {
	stashSaveCmd.Flags().StringVarP(
		&stashSaveFlags.Message, "message", "m", "",
		"description for the stashed state",
	)
	stashSaveCmd.Flags().BoolVarP(
		&stashSaveFlags.IncludeUntracked, "include-untracked", "u", false,
		"also stash untracked files",
	)
	stashSaveCmd.Flags().BoolVarP(
		&stashSaveFlags.IncludeIgnored, "all", "a", false,
		"also stash ignored files",
	)
	stashSaveCmd.Flags().BoolVar(
		&stashSaveFlags.KeepIndex, "keep-index", false,
		"leave staged changes in the index",
	)

	stashCmd.AddCommand(
		stashSaveCmd,
		stashListCmd,
		stashDropCmd,
	)
}
