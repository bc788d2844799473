package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ollama/bpetrain/bpe"
	"github.com/ollama/bpetrain/corpus"
	"github.com/ollama/bpetrain/envconfig"
	"github.com/ollama/bpetrain/format"
	"github.com/ollama/bpetrain/logutil"
	"github.com/ollama/bpetrain/progress"
)

var errMissingVocabSize = errors.New("vocabulary size is required, set --vocab-size or BPE_VOCAB_SIZE")

func TrainHandler(cmd *cobra.Command, args []string) error {
	path := args[0]

	vocabSize, _ := cmd.Flags().GetInt("vocab-size")
	if !cmd.Flags().Changed("vocab-size") {
		vocabSize = int(envconfig.VocabSize())
	}

	if vocabSize <= 0 {
		return errMissingVocabSize
	}

	specials, _ := cmd.Flags().GetStringArray("special")
	if !cmd.Flags().Changed("special") {
		specials = envconfig.SpecialTokens()
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 0 {
		return fmt.Errorf("invalid number of workers %d", workers)
	}

	show, _ := cmd.Flags().GetInt("show")

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	if vocabSize <= 256+len(specials) {
		slog.Warn("vocabulary size leaves no room for merges", "vocab_size", vocabSize, "specials", len(specials))
	}

	slog.Info("training", "corpus", path, "size", format.HumanBytes(fi.Size()), "vocab_size", vocabSize, "specials", len(specials), "workers", corpus.Workers(workers))

	var p *progress.Progress
	if progress.IsTerminal(cmd.ErrOrStderr()) {
		p = progress.NewProgress(cmd.ErrOrStderr())
		defer p.Stop()
	}

	spin := func(message string) func() {
		if p == nil {
			return func() {}
		}

		spinner := progress.NewSpinner(message)
		p.Add(spinner)
		return spinner.Stop
	}

	start := time.Now()
	done := spin("counting pretokens")
	counts, err := corpus.Count(cmd.Context(), path, specials, corpus.Options{Workers: workers})
	done()
	if err != nil {
		return err
	}

	slog.Debug("counted corpus", "pretokens", len(counts.Pretokens), "specials", len(counts.Specials))

	done = spin("learning merges")
	r := bpe.Learn(counts, vocabSize, specials)
	done()

	if p != nil {
		p.Stop()
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "vocabulary:     %d\n", len(r.Vocab))
	fmt.Fprintf(w, "special tokens: %d\n", len(r.Specials))
	fmt.Fprintf(w, "merges:         %s\n", format.HumanNumber(uint64(len(r.Merges))))
	fmt.Fprintf(w, "elapsed:        %s\n", time.Since(start).Round(time.Millisecond))

	if show > 0 && len(r.Merges) > 0 {
		fmt.Fprintln(w)
		showMerges(w, r, show)
	}

	return nil
}

// showMerges prints the first n merges in the order they were learned.
func showMerges(w io.Writer, r *bpe.Result, n int) {
	first := len(r.Vocab) - len(r.Merges)

	var data [][]string
	for i, m := range r.Merges[:min(n, len(r.Merges))] {
		data = append(data, []string{
			strconv.Itoa(first + i),
			format.Quote(m.Left),
			format.Quote(m.Right),
			format.Token(r.Vocab[first+i]),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "LEFT", "RIGHT", "TOKEN"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func EnvHandler(cmd *cobra.Command, args []string) error {
	vars := envconfig.AsMap()
	var data [][]string
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		v := vars[k]
		data = append(data, []string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"NAME", "VALUE", "DESCRIPTION"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bpetrain",
		Short:         "Byte pair encoding vocabulary trainer",
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
	}

	cobra.EnableCommandSorting = false

	trainCmd := &cobra.Command{
		Use:   "train CORPUS",
		Short: "Learn a vocabulary and merge list from a text corpus",
		Args:  cobra.ExactArgs(1),
		RunE:  TrainHandler,
	}

	trainCmd.Flags().IntP("vocab-size", "v", 0, "Target vocabulary size, including byte and special tokens")
	trainCmd.Flags().StringArrayP("special", "s", nil, "Special token, may be repeated (e.g. --special '<|endoftext|>')")
	trainCmd.Flags().IntP("workers", "w", 0, "Number of corpus counting workers (default min(8, cpus))")
	trainCmd.Flags().Int("show", 20, "Number of merges to print")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show configuration variables",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print an example configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), envconfig.GenerateExampleConfig())
		},
	}

	rootCmd.AddCommand(
		trainCmd,
		envCmd,
		configCmd,
	)

	return rootCmd
}
