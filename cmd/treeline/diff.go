package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/treelinehq/treeline/internal/config"
	"github.com/treelinehq/treeline/internal/diff"
)

var diffFlags struct {
	Staged           bool
	Head             bool
	IncludeUntracked bool
	IncludeIgnored   bool
	Reverse          bool
	Verbose          bool
}

var diffCmd = &cobra.Command{
	Use:   "diff [flags] [pathspec...]",
	Short: "Show changes between the working tree, the index, and HEAD",
	Long: `Show changes as a list of status letters and paths.

By default the working tree is compared against the index. With --staged the
index is compared against HEAD; with --head the working tree is compared
against HEAD directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := getRepo()
		if err != nil {
			return err
		}

		opts := diff.Options{
			OldPrefix: config.Treeline.Diff.OldPrefix,
			NewPrefix: config.Treeline.Diff.NewPrefix,
			Pathspec:  args,
		}
		if diffFlags.IncludeUntracked || config.Treeline.Diff.IncludeUntracked {
			opts.Flags |= diff.IncludeUntracked
		}
		if diffFlags.IncludeIgnored {
			opts.Flags |= diff.IncludeIgnored
		}
		if diffFlags.Reverse {
			opts.Flags |= diff.Reverse
		}
		opts.Flags |= diff.IncludeTypechange

		var d *diff.DiffList
		switch {
		case diffFlags.Staged:
			tree, err := repo.HeadTree()
			if err != nil {
				return err
			}
			d, err = diff.IndexToTree(repo, tree, nil, opts)
			if err != nil {
				return err
			}
		case diffFlags.Head:
			tree, err := repo.HeadTree()
			if err != nil {
				return err
			}
			d, err = diff.WorkdirToTree(repo, tree, opts)
			if err != nil {
				return err
			}
		default:
			d, err = diff.WorkdirToIndex(repo, nil, opts)
			if err != nil {
				return err
			}
		}
		defer d.Free()

		return d.Foreach(func(delta *diff.Delta) error {
			printDelta(delta)
			return nil
		})
	},
}

var statusColors = map[diff.Status]*color.Color{
	diff.Added:      color.New(color.FgGreen),
	diff.Deleted:    color.New(color.FgRed),
	diff.Modified:   color.New(color.FgYellow),
	diff.Typechange: color.New(color.FgCyan),
	diff.Ignored:    color.New(color.FgMagenta),
	diff.Untracked:  color.New(color.FgHiBlack),
}

func printDelta(delta *diff.Delta) {
	letter := string(delta.Status.Letter())
	if c, ok := statusColors[delta.Status]; ok {
		letter = c.Sprint(letter)
	}

	if diffFlags.Verbose && delta.New.Size > 0 {
		fmt.Printf("%s\t%s\t%s\n",
			letter, delta.Path(), humanize.Bytes(uint64(delta.New.Size)))
		return
	}
	fmt.Printf("%s\t%s\n", letter, delta.Path())
}

func init() {
	diffCmd.Flags().BoolVar(
		&diffFlags.Staged, "staged", false,
		"compare the index against HEAD instead of the working tree against the index",
	)
	diffCmd.Flags().BoolVar(
		&diffFlags.Head, "head", false,
		"compare the working tree against HEAD",
	)
	diffCmd.Flags().BoolVarP(
		&diffFlags.IncludeUntracked, "untracked", "u", false,
		"also report untracked files",
	)
	diffCmd.Flags().BoolVar(
		&diffFlags.IncludeIgnored, "ignored", false,
		"also report ignored files",
	)
	diffCmd.Flags().BoolVarP(
		&diffFlags.Reverse, "reverse", "R", false,
		"swap the two sides of the comparison",
	)
	diffCmd.Flags().BoolVarP(
		&diffFlags.Verbose, "verbose", "v", false,
		"include file sizes in the output",
	)
}
