package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/inoxlang/eventlist/internal/scenario"
	"github.com/maruel/natural"
)

var SCENARIO_FILE_EXTENSIONS = []string{".yaml", ".yml", ".json"}

func RunScenarios(mainSubCommand string, mainSubCommandArgs []string, env cliEnv) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(env.errW)

	var jsonOutput bool
	flags.BoolVar(&jsonOutput, "json", false, "print the reports as JSON")

	if showHelp(flags, mainSubCommandArgs, env.outW) {
		return
	}

	if err := flags.Parse(moveFlagsStart(flags, mainSubCommandArgs)); err != nil {
		return ERROR_STATUS_CODE
	}

	if flags.NArg() == 0 {
		fmt.Fprintln(env.errW, "missing scenario path")
		return ERROR_STATUS_CODE
	}

	paths, err := scenarioPaths(flags.Args())
	if err != nil {
		fmt.Fprintln(env.errW, err)
		return ERROR_STATUS_CODE
	}

	var reports []scenario.Report
	failed := false

	for _, path := range paths {
		s, err := scenario.ReadFile(path)
		if err != nil {
			fmt.Fprintln(env.errW, err)
			return ERROR_STATUS_CODE
		}

		report := scenario.Run(s, env.runConfig())
		reports = append(reports, report)

		if report.Ok() {
			env.logger.Debug().Str("scenario", s.Name).Int("events", len(report.Events)).Msg("scenario passed")
		} else {
			failed = true
		}

		if !jsonOutput {
			if err := report.Err(); err != nil {
				fmt.Fprintf(env.outW, "FAIL %s\n%s\n", path, err)
			} else {
				fmt.Fprintf(env.outW, "ok   %s %q\n", path, report.Elements)
			}
		}
	}

	if jsonOutput {
		encoder := json.NewEncoder(env.outW)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(reports); err != nil {
			fmt.Fprintln(env.errW, err)
			return ERROR_STATUS_CODE
		}
	}

	if failed {
		return ERROR_STATUS_CODE
	}
	return 0
}

// scenarioPaths returns the paths of the scenario files, the scenario files of directories are sorted
// in natural order.
func scenarioPaths(args []string) ([]string, error) {
	var paths []string

	for _, arg := range args {
		stat, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !stat.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}

		var dirPaths []string
		for _, entry := range entries {
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if entry.Type().IsRegular() && slices.Contains(SCENARIO_FILE_EXTENSIONS, ext) {
				dirPaths = append(dirPaths, filepath.Join(arg, entry.Name()))
			}
		}

		slices.SortFunc(dirPaths, func(a, b string) int {
			switch {
			case natural.Less(a, b):
				return -1
			case natural.Less(b, a):
				return 1
			}
			return 0
		})
		paths = append(paths, dirPaths...)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", strings.Join(args, ", "))
	}
	return paths, nil
}
