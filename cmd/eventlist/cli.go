package main

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/inoxlang/eventlist/internal/codec"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

const (
	RUN_SUBCMD                   = "run"
	SOAK_SUBCMD                  = "soak"
	DUMP_SUBCMD                  = "dump"
	LOAD_SUBCMD                  = "load"
	INSTALL_COMPLETIONS_SUBCMD   = "install-completions"
	UNINSTALL_COMPLETIONS_SUBCMD = "uninstall-completions"
	HELP_SUBCMD                  = "help"
)

var (
	SUBCOMMANDS = []string{
		RUN_SUBCMD, SOAK_SUBCMD, DUMP_SUBCMD, LOAD_SUBCMD, HELP_SUBCMD,
		INSTALL_COMPLETIONS_SUBCMD, UNINSTALL_COMPLETIONS_SUBCMD,
	}

	HELP_SUBCMD_EQUIVALENTS = []string{"--help", "-help", "-h"}

	CLI_SUBCOMMAND_DESCRIPTIONS = [][2]string{
		{RUN_SUBCMD, "run scenario files (YAML or JSON) or the scenario files of a directory"},
		{SOAK_SUBCMD, "apply random edits to lists and cursors and check them against a model"},
		{DUMP_SUBCMD, "run a scenario and write its change history to a file"},
		{LOAD_SUBCMD, "read a change history and print the rebuilt list"},

		{INSTALL_COMPLETIONS_SUBCMD, "install CLI completions by addding the completion command to the detected rc file (supported shells are bash, zsh and fish)"},
		{UNINSTALL_COMPLETIONS_SUBCMD, "uninstall CLI completions by removing the completion command from the detected rc file"},
		{HELP_SUBCMD, "show the general help or command-specific help"},
	}

	CLI_SUBCOMMAND_DESCRIPTION_MAP = map[string]string{}

	EVENTLIST_CMD_HELP = "commands:\n"

	codecPredictor = predict.Set(codec.CODEC_NAMES)

	cmd = &complete.Command{
		Sub: map[string]*complete.Command{
			RUN_SUBCMD: {
				Flags: map[string]complete.Predictor{
					"json": predict.Nothing,
				},
				Args: predict.Or(predict.Files("*.yaml"), predict.Files("*.json"), predict.Dirs("*")),
			},
			SOAK_SUBCMD: {
				Flags: map[string]complete.Predictor{
					"ops":     predict.Nothing,
					"cursors": predict.Nothing,
					"workers": predict.Nothing,
					"seed":    predict.Nothing,
				},
			},
			DUMP_SUBCMD: {
				Flags: map[string]complete.Predictor{
					"codec": codecPredictor,
					"zstd":  predict.Nothing,
					"o":     predict.Files("*"),
				},
				Args: predict.Or(predict.Files("*.yaml"), predict.Files("*.json")),
			},
			LOAD_SUBCMD: {
				Flags: map[string]complete.Predictor{
					"codec": codecPredictor,
					"zstd":  predict.Nothing,
				},
				Args: predict.Files("*"),
			},
			HELP_SUBCMD:                  {},
			INSTALL_COMPLETIONS_SUBCMD:   {},
			UNINSTALL_COMPLETIONS_SUBCMD: {},
		},
	}
)

func init() {
	for _, entry := range CLI_SUBCOMMAND_DESCRIPTIONS {
		cmd, desc := entry[0], entry[1]
		CLI_SUBCOMMAND_DESCRIPTION_MAP[cmd] = desc
		EVENTLIST_CMD_HELP += "\t" + cmd + " - " + desc + "\n"
	}
	EVENTLIST_CMD_HELP += "\nType `eventlist help <command>` to get command-specific help.\n"
}

// moveFlagsStart returns args with the flags moved before the positional arguments, the flag package stops
// parsing at the first non-flag argument. The value of a non-boolean flag written as a separate argument
// (-o file) is moved with the flag.
func moveFlagsStart(flags *flag.FlagSet, args []string) []string {
	var flagArgs, positionalArgs []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			positionalArgs = append(positionalArgs, args[i+1:]...)
			break
		}

		if len(arg) < 2 || arg[0] != '-' {
			positionalArgs = append(positionalArgs, arg)
			continue
		}

		flagArgs = append(flagArgs, arg)

		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}

		if f := flags.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}

	//the positional arguments are never parsed as flags.
	return append(append(flagArgs, "--"), positionalArgs...)
}

func isBoolFlag(f *flag.Flag) bool {
	boolFlag, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && boolFlag.IsBoolFlag()
}

func showHelp(flags *flag.FlagSet, args []string, out io.Writer) bool {
	//only show help
	if slices.Contains(args, "-h") || slices.Contains(args, "--help") {

		cmd := flags.Name()
		if desc, ok := CLI_SUBCOMMAND_DESCRIPTION_MAP[cmd]; ok {
			fmt.Fprintln(out, desc)
		}

		flags.SetOutput(out)
		fmt.Fprint(out, "\noptions:\n")
		flags.PrintDefaults()

		return true
	}

	return false
}
