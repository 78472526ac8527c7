package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"slices"
	"unicode"

	"github.com/inoxlang/eventlist/internal/config"
	"github.com/inoxlang/eventlist/internal/scenario"
	"github.com/inoxlang/eventlist/internal/slog"
	"github.com/inoxlang/eventlist/internal/utils"
	"github.com/posener/complete/v2/install"
	"github.com/rs/zerolog"
)

const (
	ERROR_STATUS_CODE = 1

	COMMAND_NAME = "eventlist"
)

func main() {
	//handle completions
	cmd.Complete(COMMAND_NAME)

	statusCode := _main(os.Args, os.Stdout, os.Stderr)
	if statusCode != 0 {
		os.Exit(statusCode)
	}
}

func _main(args []string, outW io.Writer, errW io.Writer) (statusCode int) {
	defer func() {
		if e := recover(); e != nil {
			err := utils.ConvertPanicValueToError(e)
			fmt.Fprintf(errW, "%s\n%s\n", err, debug.Stack())
			statusCode = ERROR_STATUS_CODE
		}
	}()

	mainSubCommand := ""
	var mainSubCommandArgs []string

	if len(args) == 1 { //no subcommand specified
		mainSubCommand = HELP_SUBCMD
	} else {
		mainSubCommand = args[1]
		mainSubCommandArgs = args[2:]
	}

	//if the command has the shape help <subcommand> ... we modify the arguments to ask the subcommand to print its help message.
	if mainSubCommand == HELP_SUBCMD && len(mainSubCommandArgs) > 0 && mainSubCommandArgs[0] != "" && unicode.IsLetter(rune(mainSubCommandArgs[0][0])) {
		mainSubCommand = mainSubCommandArgs[0]
		mainSubCommandArgs = []string{"-h"}
	}

	//unknown command
	if !slices.Contains(SUBCOMMANDS, mainSubCommand) && !slices.Contains(HELP_SUBCMD_EQUIVALENTS, mainSubCommand) {
		fmt.Fprintf(errW, "unknown command '%s'", mainSubCommand)

		closest, _, ok := utils.FindClosestString(context.Background(), SUBCOMMANDS, mainSubCommand, 2)
		if ok {
			fmt.Fprintf(errW, ", did you mean '%s' ?\n", closest)
		} else {
			fmt.Fprint(errW, "\n"+EVENTLIST_CMD_HELP)
		}
		return ERROR_STATUS_CODE
	}

	switch mainSubCommand {
	case HELP_SUBCMD, "--help", "-help", "-h":
		fmt.Fprint(outW, EVENTLIST_CMD_HELP)
		return
	case INSTALL_COMPLETIONS_SUBCMD:
		err := install.Install(COMMAND_NAME)
		if err != nil {
			fmt.Fprintln(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintln(outW, "installed")
		return
	case UNINSTALL_COMPLETIONS_SUBCMD:
		err := install.Uninstall(COMMAND_NAME)
		if err != nil {
			fmt.Fprintln(errW, err)
			return ERROR_STATUS_CODE
		}
		fmt.Fprintln(outW, "uninstalled")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	levels := cfg.Levels()
	logger := slog.NewConsoleLogger(errW, cfg.ShouldColorize(), levels.DefaultLevel())
	if cfg.Path != "" {
		logger.Debug().Str("path", cfg.Path).Msg("configuration loaded")
	}

	env := cliEnv{
		config: cfg,
		logger: logger,
		levels: levels,
		outW:   outW,
		errW:   errW,
	}

	switch mainSubCommand {
	case RUN_SUBCMD:
		return RunScenarios(mainSubCommand, mainSubCommandArgs, env)
	case SOAK_SUBCMD:
		return RunSoak(mainSubCommand, mainSubCommandArgs, env)
	case DUMP_SUBCMD:
		return DumpHistory(mainSubCommand, mainSubCommandArgs, env)
	case LOAD_SUBCMD:
		return LoadHistory(mainSubCommand, mainSubCommandArgs, env)
	default:
		panic(fmt.Errorf("subcommand %q is not handled", mainSubCommand))
	}
}

type cliEnv struct {
	config config.Config
	logger zerolog.Logger
	levels *slog.Levels
	outW   io.Writer
	errW   io.Writer
}

func (env *cliEnv) runConfig() scenario.RunConfig {
	return scenario.RunConfig{
		Logger: &env.logger,
		Levels: env.levels,
	}
}
