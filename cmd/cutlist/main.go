// Package main is the entry point for the Cutlist editing shell.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/cutlist/internal/engine"
	"github.com/dshills/cutlist/internal/media"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	lib, err := media.OpenLibrary(opts.LibraryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open media library: %v\n", err)
		return 1
	}
	defer lib.Close()

	eng := engine.New(
		engine.WithMediaDurations(lib),
		engine.WithMaxUndoBatches(opts.MaxUndo),
	)
	defer eng.Close()

	if opts.ProjectPath != "" {
		if err := eng.LoadFile(opts.ProjectPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load project: %v\n", err)
			return 1
		}
	}

	sh := newShell(eng, lib, opts.ProjectPath)
	if err := sh.run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type options struct {
	ProjectPath string
	LibraryPath string
	MaxUndo     int
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	defaultLib := "cutlist-media.db"
	if home, err := os.UserHomeDir(); err == nil {
		defaultLib = filepath.Join(home, ".cutlist", "media.db")
	}

	flag.StringVar(&opts.ProjectPath, "project", "", "Project file to open")
	flag.StringVar(&opts.ProjectPath, "p", "", "Project file to open (shorthand)")
	flag.StringVar(&opts.LibraryPath, "library", defaultLib, "Media library database path")
	flag.StringVar(&opts.LibraryPath, "l", defaultLib, "Media library database path (shorthand)")
	flag.IntVar(&opts.MaxUndo, "max-undo", 1000, "Maximum undo history entries")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Cutlist - timeline editing shell\n\n")
		fmt.Fprintf(os.Stderr, "Usage: cutlist [options] [project.clp]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cutlist                     Start with an empty timeline\n")
		fmt.Fprintf(os.Stderr, "  cutlist -p cut.clp          Open a project\n")
		fmt.Fprintf(os.Stderr, "  cutlist -l ./media.db       Use a local media library\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Cutlist %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// A bare positional argument is the project file.
	if opts.ProjectPath == "" && flag.NArg() > 0 {
		opts.ProjectPath = flag.Arg(0)
	}

	return opts
}
