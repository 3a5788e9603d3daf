// Command detcheck validates a detection feed file before it is handed to
// the viewer: it reports the record count and flags coordinates outside the
// normalized range, which would clip visually in the overlay.
package main

import (
	"fmt"
	"os"

	"dicom-viewer/internal/detect"

	"github.com/charmbracelet/log"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <detections.json>\n", os.Args[0])
		os.Exit(2)
	}

	logger := log.New(os.Stderr)

	feed, err := detect.LoadFeed(os.Args[1])
	if err != nil {
		logger.Fatal("feed unreadable", "err", err)
	}

	outOfRange := 0
	for i, r := range feed.Records {
		if !r.InRange() {
			outOfRange++
			logger.Warn("record out of range",
				"index", i, "label", r.Label,
				"x", r.X, "y", r.Y, "width", r.Width, "height", r.Height,
				"confidence", r.Confidence)
		}
	}

	logger.Info("feed checked",
		"records", len(feed.Records), "out_of_range", outOfRange)
	for _, r := range feed.Records {
		fmt.Println(r.DisplayLabel())
	}

	if outOfRange > 0 {
		os.Exit(1)
	}
}
