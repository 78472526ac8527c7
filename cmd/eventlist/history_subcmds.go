package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/inoxlang/eventlist/internal/codec"
	"github.com/inoxlang/eventlist/internal/scenario"
)

// DumpHistory runs a scenario and encodes its history (initial insertions and recorded events) with the
// configured codec.
func DumpHistory(mainSubCommand string, mainSubCommandArgs []string, env cliEnv) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(env.errW)

	var codecName, outputPath string
	var compress bool
	flags.StringVar(&codecName, "codec", env.config.Codec, "codec: gob, json or yaml")
	flags.BoolVar(&compress, "zstd", env.config.Compress, "compress each frame with zstd")
	flags.StringVar(&outputPath, "o", "", "output file, the standard output is used if not set")

	if showHelp(flags, mainSubCommandArgs, env.outW) {
		return
	}

	if err := flags.Parse(moveFlagsStart(flags, mainSubCommandArgs)); err != nil {
		return ERROR_STATUS_CODE
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(env.errW, "a single scenario path is expected")
		return ERROR_STATUS_CODE
	}

	coder, err := codec.ForName[scenario.EventRecord](codecName, compress)
	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	s, err := scenario.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	report := scenario.Run(s, env.runConfig())
	if err := report.Err(); err != nil {
		env.logger.Warn().Err(err).Msg("the scenario has failures, the history is dumped anyway")
	}

	history := report.History()
	write := func(w io.Writer) error {
		return codec.EncodeAll(coder, history, w)
	}

	if outputPath == "" {
		err = write(env.outW)
	} else {
		var f *os.File
		f, err = os.Create(outputPath)
		if err == nil {
			err = writeAndClose(f, write)
		}
	}

	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	env.logger.Info().Str("codec", codecName).Bool("zstd", compress).Int("records", len(history)).Msg("history dumped")
	return 0
}

// LoadHistory decodes a history written by DumpHistory, replays it on an empty list and prints the elements.
func LoadHistory(mainSubCommand string, mainSubCommandArgs []string, env cliEnv) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(env.errW)

	var codecName string
	var compress bool
	flags.StringVar(&codecName, "codec", env.config.Codec, "codec: gob, json or yaml")
	flags.BoolVar(&compress, "zstd", env.config.Compress, "the frames are compressed with zstd")

	if showHelp(flags, mainSubCommandArgs, env.outW) {
		return
	}

	if err := flags.Parse(moveFlagsStart(flags, mainSubCommandArgs)); err != nil {
		return ERROR_STATUS_CODE
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(env.errW, "a single history path is expected")
		return ERROR_STATUS_CODE
	}

	coder, err := codec.ForName[scenario.EventRecord](codecName, compress)
	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	f, err := os.Open(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}
	defer f.Close()

	records, err := codec.DecodeAll(coder, f)
	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	list, err := scenario.Replay(records, env.runConfig())
	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	out := bufio.NewWriter(env.outW)

	fmt.Fprintf(out, "%d records replayed, %d elements\n", len(records), list.Size())
	for i, elem := range list.Values() {
		fmt.Fprintf(out, "%d\t%s\n", i, elem)
	}

	if err := out.Flush(); err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}
	return 0
}

// writeAndClose calls write with wc and closes wc, the close error is returned if write succeeded.
func writeAndClose(wc io.WriteCloser, write func(w io.Writer) error) error {
	writeErr := write(wc)
	closeErr := wc.Close()

	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close the output: %w", closeErr)
	}
	return nil
}
