package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"depthrig/internal/export"
)

func main() {
	dest := flag.String("dest", "", "Directory for the produced archive (default: session's parent)")
	public := flag.String("public", "", "Public directory to move the archive into (enables the move stage)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: export [-dest DIR] [-public DIR] SESSION_DIR")
		os.Exit(2)
	}
	src := flag.Arg(0)

	job := export.Start(src, export.Options{
		DestDir:   *dest,
		PublicDir: *public,
	})
	fmt.Printf("Export %s: %s\n", job.ID, src)

	// Ctrl-C cancels cooperatively; the worker finishes its current entry.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigc:
			fmt.Println("\nCancelling...")
			job.Cancel()
		case <-ticker.C:
			fmt.Printf("\r  [%s] %5.1f%%", job.State(), job.Progress()*100)
		case <-job.Done():
			fmt.Printf("\r  [%s] %5.1f%%\n", job.State(), job.Progress()*100)
			report(job)
			return
		}
	}
}

func report(job *export.Job) {
	switch {
	case job.Err() != nil:
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", job.Err())
		os.Exit(1)
	case job.Cancelled():
		if p := job.ArchivePath(); p != "" {
			fmt.Printf("Cancelled; partial archive kept at %s\n", p)
		} else {
			fmt.Println("Cancelled; nothing written.")
		}
	default:
		fmt.Printf("Archive: %s\n", job.ArchivePath())
	}
}
