package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "edulearnd.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit(os.Args[2:])
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "take":
		err = cmdTake(os.Args[2:])
	case "generate":
		err = cmdGenerate(os.Args[2:])
	case "xp":
		err = cmdXP(os.Args[2:])
	case "watch":
		err = cmdWatch()
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("edulearn %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`edulearn - quizzes and XP from the terminal

Usage:
  edulearn <command> [arguments]

Setup Commands:
  init            Write default config and store the backend token

Daemon Commands:
  start           Start the edulearn daemon
  stop            Stop the edulearn daemon
  status          Show daemon status
  logs            View daemon logs

Quiz Commands:
  take <id>       Take a catalog quiz
  generate        Generate a quiz on a topic and take it
  xp              Show XP and recent reconciled attempts
  watch           Follow XP changes published by the daemon

Integration Commands:
  mcp             Start MCP server on stdio

Other:
  help            Show this help message
  version         Show version information

Examples:
  edulearn init -token $TOKEN
  edulearn start
  edulearn take 12
  edulearn generate -difficulty HARD goroutines
  edulearn xp -history 10`)
}

// renderProgressBar creates a visual progress bar for a 0-100 value
func renderProgressBar(percent, width int) string {
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
