package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2lms <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Serve transformed documents to the LMS editor")
	fmt.Fprintln(w, "  list       List documents under the root")
	fmt.Fprintln(w, "  transform  Print the paste-ready fragment of a document")
	fmt.Fprintln(w, "  push       Upload images and paste a document into the open editor")
	fmt.Fprintln(w, "  doctor     Check browser, listener and credentials setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'html2lms help <command>' for details on a specific command.")
}

// printCommonUsage prints flags shared by every command.
func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

// printTransformOptionUsage prints document transformation flags.
func printTransformOptionUsage(w io.Writer) {
	fmt.Fprintln(w, "Transformation:")
	fmt.Fprintln(w, "  -r, --root <dir>          Document root (default: .)")
	fmt.Fprintln(w, "      --style <s>           Base CSS: name (default, compact), file path, or CSS")
	fmt.Fprintln(w, "      --asset-path <dir>    Custom styles/templates directory")
	fmt.Fprintln(w, "      --card-class <s>      Card container class (default: card)")
	fmt.Fprintln(w, "      --minify              Minify the fragment")
	fmt.Fprintln(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2lms serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve transformed documents over HTTP for the editor page to fetch.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Listener:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default: 127.0.0.1:8765)")
	fmt.Fprintln(w, "      --allow-origin <url>  Allowed CORS origin, repeatable (default: any)")
	fmt.Fprintln(w)
	printTransformOptionUsage(w)
	printCommonUsage(w)
}

// printListUsage prints usage for the list command.
func printListUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2lms list [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List .html, .htm, .md and .markdown documents under the root.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Source:")
	fmt.Fprintln(w, "  -r, --root <dir>          Document root (default: .)")
	fmt.Fprintln(w, "  -l, --listener <addr>     Ask a running listener instead")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printTransformUsage prints usage for the transform command.
func printTransformUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2lms transform <document> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Inline CSS, clean up cards and print the body fragment.")
	fmt.Fprintln(w, "Warnings are written to stderr.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Write the fragment to a file")
	fmt.Fprintln(w, "      --json                Print file, fragment and warnings as JSON")
	fmt.Fprintln(w, "  -l, --listener <addr>     Transform through a running listener")
	fmt.Fprintln(w)
	printTransformOptionUsage(w)
	printCommonUsage(w)
}

// printPushUsage prints usage for the push command.
func printPushUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2lms push <document> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Transform a document, upload its local images to the course files,")
	fmt.Fprintln(w, "and paste the result into the rich content editor.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Browser:")
	fmt.Fprintln(w, "      --control-url <url>   DevTools URL of a running browser")
	fmt.Fprintln(w, "      --page-match <s>      Editor page URL substring (default: /courses/)")
	fmt.Fprintln(w, "      --user-data-dir <dir> Profile for a launched browser")
	fmt.Fprintln(w, "      --headless            Launch without a window")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "LMS:")
	fmt.Fprintln(w, "      --base-url <url>      LMS origin (default: editor page origin)")
	fmt.Fprintln(w, "      --course <id>         Course id when the page URL has none")
	fmt.Fprintln(w, "      --folder <path>       Upload folder")
	fmt.Fprintln(w, "      --mode <s>            insert (default) or replace")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-request timeout (default: 60s)")
	fmt.Fprintln(w, "  -l, --listener <addr>     Read documents from a running listener")
	fmt.Fprintln(w)
	printTransformOptionUsage(w)
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: html2lms doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, the local listener and LMS credentials.")
	fmt.Fprintln(w, "Exits 1 when errors are found; warnings keep exit 0.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "serve":
		printServeUsage(env.Stdout)
	case "list":
		printListUsage(env.Stdout)
	case "transform":
		printTransformUsage(env.Stdout)
	case "push":
		printPushUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: html2lms version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: html2lms help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
