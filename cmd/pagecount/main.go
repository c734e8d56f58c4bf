// Command pagecount prints a page estimate for each file named on the
// command line, one JSON object per line:
//
//	pagecount [flags] file...
//
// Files are processed concurrently; output order follows the arguments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/tsawler/pagecount"
	"github.com/tsawler/pagecount/jsbridge"
	"github.com/tsawler/pagecount/logging"
	"github.com/tsawler/pagecount/model"
)

// maxFileSize bounds how much of one file is read.
const maxFileSize = 512 << 20

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// line is one output record.
type line struct {
	File   string          `json:"file"`
	Result json.RawMessage `json:"result"`
}

type job struct {
	index int
	path  string
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pagecount", flag.ContinueOnError)
	fs.SetOutput(stderr)
	paper := fs.String("paper", "", "Default paper for formats without a page size: a4 (default) or letter")
	widthMM := fs.Float64("width-mm", 0, "Custom paper width in millimetres (with -height-mm)")
	heightMM := fs.Float64("height-mm", 0, "Custom paper height in millimetres (with -width-mm)")
	chars := fs.Int("chars", 0, "Characters per page for text estimates (0 for the default)")
	rows := fs.Int("rows", 0, "Spreadsheet rows per page (0 for the default)")
	optionsJSON := fs.String("options", "", `Options as JSON, e.g. {"default_paper":"Letter"}; flags win`)
	script := fs.String("script", "", "JavaScript page counter consulted before the built-in PDF strategies")
	function := fs.String("function", jsbridge.DefaultFunction, "Counting function defined by -script")
	workers := fs.Int("workers", runtime.NumCPU(), "Number of files processed concurrently")
	timeout := fs.Duration("timeout", 30*time.Second, "Time limit per file for the script counter")
	verbose := fs.Bool("v", false, "Log estimation steps to stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Usage: pagecount [options] file...")
		fs.PrintDefaults()
		return 2
	}

	if *verbose {
		logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer logging.SetLogger(nil)
	}

	opts := []pagecount.Option{pagecount.WithOptions(pagecount.ParseOptions(*optionsJSON))}
	if *paper != "" {
		p, ok := model.ParsePaper(*paper)
		if !ok {
			fmt.Fprintf(stderr, "pagecount: unknown paper %q\n", *paper)
			return 2
		}
		opts = append(opts, pagecount.WithPaper(p))
	}
	if *widthMM > 0 && *heightMM > 0 {
		opts = append(opts, pagecount.WithCustomPaperMM(*widthMM, *heightMM))
	}
	if *chars > 0 {
		opts = append(opts, pagecount.WithCharsPerPage(*chars))
	}
	if *rows > 0 {
		opts = append(opts, pagecount.WithRowsPerPage(*rows))
	}
	if *script != "" {
		src, err := os.ReadFile(*script)
		if err != nil {
			fmt.Fprintf(stderr, "pagecount: read script: %v\n", err)
			return 1
		}
		counter, err := jsbridge.New(string(src), jsbridge.WithFunction(*function))
		if err != nil {
			fmt.Fprintf(stderr, "pagecount: load script: %v\n", err)
			return 1
		}
		opts = append(opts, pagecount.WithExternalCounter(counter))
	}

	est := pagecount.New(opts...)
	results := estimateAll(est, fs.Args(), *workers, *timeout)

	enc := json.NewEncoder(stdout)
	status := 0
	for i, res := range results {
		if err := enc.Encode(line{File: fs.Arg(i), Result: json.RawMessage(res.out)}); err != nil {
			fmt.Fprintf(stderr, "pagecount: write output: %v\n", err)
			return 1
		}
		if res.failed {
			status = 1
		}
	}
	return status
}

type fileResult struct {
	out    string
	failed bool
}

// estimateAll runs est over paths with a bounded pool of workers and
// returns the results in argument order.
func estimateAll(est *pagecount.Estimator, paths []string, workers int, timeout time.Duration) []fileResult {
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]fileResult, len(paths))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = estimateFile(est, j.path, timeout)
			}
		}()
	}

	for i, p := range paths {
		jobs <- job{index: i, path: p}
	}
	close(jobs)
	wg.Wait()
	return results
}

func estimateFile(est *pagecount.Estimator, path string, timeout time.Duration) fileResult {
	data, err := readFile(path)
	if err != nil {
		out, _ := json.Marshal(map[string]string{"error": err.Error()})
		return fileResult{out: string(out), failed: true}
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out := est.EstimateJSON(ctx, data, path)
	var probe struct {
		Error *string `json:"error"`
	}
	failed := json.Unmarshal([]byte(out), &probe) != nil || probe.Error != nil
	return fileResult{out: out, failed: failed}
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("%s: file larger than %d bytes", path, maxFileSize)
	}
	return data, nil
}
