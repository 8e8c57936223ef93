// Command textextract recognizes text in images with the platform's native
// recognizer and prints the results as JSON.
//
// Usage:
//
//	textextract extract a.png b.jpg      # text of each region
//	textextract details --base64 a.png   # text, confidence and boxes
//	textextract recognize a.png          # full unified result
//	textextract supported                # whether this build can recognize
//	textextract enqueue a.png            # submit a job to the worker queue
package main

import "github.com/dv00d00/expo-text-extractor/cmd/textextract/cmd"

var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
