// Package cmd implements the modelkit CLI commands.
//
// The command structure follows standard Go CLI patterns with a root command
// that dispatches to subcommands (info, settings).
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-drift/modelkit/pkg/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name        string
	Short       string
	Long        string
	Usage       string
	Run         func(args []string) error
	SubCommands []*Command
}

var rootCmd = &Command{
	Name:  "modelkit",
	Short: "modelkit - entity runtime tools",
	Long: `modelkit runs small tools on top of the modelkit entity runtime:
image metadata inspection and layered settings resolution.

Use "modelkit <command> --help" for more information about a command.`,
	Usage: "modelkit <command> [flags]",
}

// stdout receives command output.
var stdout io.Writer = os.Stdout

// Commands registered with the CLI.
var commands = make(map[string]*Command)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	rootCmd.SubCommands = append(rootCmd.SubCommands, cmd)
}

// logLevelOverride is set by --log-level and wins over modelkit.yaml.
var logLevelOverride string

// Execute runs the CLI with the arguments from os.Args.
func Execute() error {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the CLI with args.
func ExecuteArgs(args []string) error {
	logLevelOverride = ""
	if len(args) == 0 {
		printHelp(rootCmd)
		return nil
	}

	var filteredArgs []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help", "help":
			if len(filteredArgs) == 0 {
				printHelp(rootCmd)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "-v", "--version", "version":
			if len(filteredArgs) == 0 {
				fmt.Printf("modelkit version %s (built %s)\n", Version, BuildTime)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "--log-level":
			if i+1 >= len(args) {
				return fmt.Errorf("--log-level requires a level")
			}
			logLevelOverride = args[i+1]
			i++
		default:
			if strings.HasPrefix(arg, "--log-level=") {
				logLevelOverride = strings.TrimPrefix(arg, "--log-level=")
				continue
			}
			filteredArgs = append(filteredArgs, arg)
		}
	}
	args = filteredArgs

	if logLevelOverride != "" {
		level, ok := logging.ParseLevel(logLevelOverride)
		if !ok {
			return fmt.Errorf("unknown log level %q", logLevelOverride)
		}
		logging.SetLevel(level)
	}

	if len(args) == 0 {
		printHelp(rootCmd)
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmdName)
		printHelp(rootCmd)
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	cmdArgs := args[1:]
	for _, arg := range cmdArgs {
		if arg == "-h" || arg == "--help" || arg == "help" {
			printCommandHelp(cmd)
			return nil
		}
	}

	if err := cmd.Run(cmdArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func printHelp(cmd *Command) {
	fmt.Println(cmd.Long)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s\n", cmd.Usage)
	fmt.Println()
	fmt.Println("Commands:")
	for _, sub := range cmd.SubCommands {
		fmt.Printf("  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -h, --help           Show help for a command")
	fmt.Println("  -v, --version        Show version information")
	fmt.Println("  --log-level LEVEL    trace, debug, info, warn, error or off")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Printf("  %-20s Log level (lower priority than --log-level)\n", logging.EnvLogLevel)
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  modelkit info photo.png        Print image metadata")
	fmt.Println("  modelkit settings              Print resolved settings")
}

func printCommandHelp(cmd *Command) {
	fmt.Println(cmd.Long)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s\n", cmd.Usage)
}
