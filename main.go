package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

var commands = []command{
	{"export", "[audio flags] [-out dir] input", "Render one track to BEATBOY_EXPORT_<name>.wav", runExport},
	{"bulk", "[audio flags] [-out file.zip] [-quiet] inputs...", "Render many tracks into a zip, four at a time", runBulk},
	{"video", "[video flags] [-out file.mp4] [-fps 30] [-quiet] input", "Render an audio-reactive video", runVideo},
	{"thumbnail", "[video flags] [-out dir] [input]", "Write THUMBNAIL_<artist>.png", runThumbnail},
	{"preview", "[video flags] [-t ms] [-expanded] [-color mode] [input]", "Draw an editor frame in the terminal", runPreview},
	{"play", "[audio flags] input", "Audition the processed track", runPlay},
	{"config", "[video flags] [-out session.yaml]", "Print or save the effective session", runConfig},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return errors.New("no command given")
		}
		return nil
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		err := c.run(ctx, args[1:], stdout, stderr)
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	usage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func usage(w io.Writer) {
	var b strings.Builder
	b.WriteString("Usage: beatboy <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-10s %s\n", c.name, c.summary)
	}
	b.WriteString("\nRun 'beatboy <command> -h' for the flags of a command.\n")
	fmt.Fprint(w, b.String())
}
