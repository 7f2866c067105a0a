// cbca aggregates stereo matching cost volumes with cross-based cost
// aggregation.
//
// Usage:
//
//	cbca aggregate -left L -right R -in vol.cv -out agg.cv [options]
//	cbca cross -image IMG -out cross.exr [options]
//	cbca info [-layers] vol.cv
//	cbca version
//
// Images are read from OpenEXR, TIFF, JPEG 2000 or PNG files. Cost volumes
// use the .cv container of package costvolume.
//
// Exit codes:
//
//	0: success
//	1: processing failure
//	2: usage or configuration error
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mrjoshuak/go-stereo/aggregation"
	"github.com/mrjoshuak/go-stereo/costvolume"
	"github.com/mrjoshuak/go-stereo/internal/exrio"
	"github.com/mrjoshuak/go-stereo/internal/metrics"
	"github.com/mrjoshuak/go-stereo/internal/parallel"
	"github.com/mrjoshuak/go-stereo/raster"
)

const version = "1.0.0"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}
	switch args[0] {
	case "aggregate":
		return runAggregate(args[1:], stdout, stderr)
	case "cross":
		return runCross(args[1:], stderr)
	case "info":
		return runInfo(args[1:], stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "cbca version %s\n", version)
		return exitOK
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "cbca: unknown command %q\n", args[0])
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cbca aggregate -left L -right R -in vol.cv -out agg.cv [-config cfg.json] [-workers n] [-metrics file.prom] [-v]")
	fmt.Fprintln(w, "  cbca cross -image IMG -out cross.exr [-mask M] [-nodata v] [-offset n] [-config cfg.json]")
	fmt.Fprintln(w, "  cbca info [-layers] vol.cv")
	fmt.Fprintln(w, "  cbca version")
}

// newLogger returns a text logger on w, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runAggregate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("aggregate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	leftPath := fs.String("left", "", "left image")
	rightPath := fs.String("right", "", "right image")
	leftMask := fs.String("left-mask", "", "left mask image, overrides the configuration")
	rightMask := fs.String("right-mask", "", "right mask image, overrides the configuration")
	inPath := fs.String("in", "", "input cost volume (.cv)")
	outPath := fs.String("out", "", "output cost volume (.cv)")
	cfgPath := fs.String("config", "", "JSON configuration file")
	workers := fs.Int("workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	metricsPath := fs.String("metrics", "", "write Prometheus metrics to this textfile")
	verbose := fs.Bool("v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *leftPath == "" || *rightPath == "" || *inPath == "" || *outPath == "" {
		fmt.Fprintln(stderr, "cbca aggregate: -left, -right, -in and -out are required")
		fs.Usage()
		return exitUsage
	}

	log := newLogger(stderr, *verbose)
	aggregation.SetLogger(log)
	defer aggregation.SetLogger(nil)

	file, cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "cbca aggregate: %v\n", err)
		return exitUsage
	}
	if *leftMask != "" {
		file.Input.LeftMask = *leftMask
	}
	if *rightMask != "" {
		file.Input.RightMask = *rightMask
	}
	if *workers > 0 {
		prev := parallel.GetConfig()
		parallel.SetConfig(parallel.Config{Workers: *workers, GrainSize: prev.GrainSize})
		defer parallel.SetConfig(prev)
	}

	rec := metrics.New()
	method, err := aggregation.New(cfg,
		aggregation.WithWorkers(*workers),
		aggregation.WithLayerObserver(rec.ObserveLayer),
		aggregation.WithCrossObserver(rec.ObserveCrossSupport),
	)
	if err != nil {
		fmt.Fprintf(stderr, "cbca aggregate: %v\n", err)
		return exitUsage
	}

	start := time.Now()
	err = aggregate(method, file, *leftPath, *rightPath, *inPath, *outPath, log)
	rec.ObserveRun(method.Name(), time.Since(start), err)

	if *metricsPath != "" {
		if merr := rec.WriteTextfile(*metricsPath); merr != nil {
			log.Warn("writing metrics", "path", *metricsPath, "err", merr)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "cbca aggregate: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "%s: aggregated with %s in %v\n", *outPath, method.Name(), time.Since(start).Round(time.Millisecond))
	return exitOK
}

func aggregate(method aggregation.Method, file *fileConfig, leftPath, rightPath, inPath, outPath string, log *slog.Logger) error {
	left, err := raster.ReadFile(leftPath, file.leftOptions())
	if err != nil {
		return fmt.Errorf("left image: %w", err)
	}
	right, err := raster.ReadFile(rightPath, file.rightOptions())
	if err != nil {
		return fmt.Errorf("right image: %w", err)
	}
	v, err := costvolume.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("cost volume: %w", err)
	}
	log.Debug("inputs loaded",
		"left", fmt.Sprintf("%dx%d", left.Rows, left.Cols),
		"right", fmt.Sprintf("%dx%d", right.Rows, right.Cols),
		"volume", fmt.Sprintf("%dx%dx%d", v.Rows, v.Cols, v.NumDisparities()),
		"subpixel", v.Attrs.SubpixelFactor, "offset", v.Attrs.BorderOffset)

	if err := method.Aggregate(left, right, v); err != nil {
		return err
	}
	if err := costvolume.WriteFile(outPath, v); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	log.Info("cost volume aggregated", "method", method.Name(), "out", outPath, "max_cost", v.Attrs.MaxPossibleCost)
	return nil
}

func runCross(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("cross", flag.ContinueOnError)
	fs.SetOutput(stderr)
	imgPath := fs.String("image", "", "input image")
	maskPath := fs.String("mask", "", "mask image")
	nd := fs.Float64("nodata", raster.DefaultNoDataValue, "no-data sample value (NaN disables)")
	offset := fs.Int("offset", 0, "border offset trimmed from every side")
	outPath := fs.String("out", "", "output OpenEXR file with left, right, top and bottom channels")
	cfgPath := fs.String("config", "", "JSON configuration file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *imgPath == "" || *outPath == "" || *offset < 0 {
		fmt.Fprintln(stderr, "cbca cross: -image and -out are required, -offset must be >= 0")
		fs.Usage()
		return exitUsage
	}

	file, cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "cbca cross: %v\n", err)
		return exitUsage
	}
	cfg.Method = aggregation.MethodCBCA
	c, err := aggregation.NewCrossBased(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "cbca cross: %v\n", err)
		return exitUsage
	}

	img, err := raster.ReadFile(*imgPath, file.readOptions(noData(*nd), *maskPath))
	if err != nil {
		fmt.Fprintf(stderr, "cbca cross: %v\n", err)
		return exitFailure
	}
	if err := writeCross(*outPath, c.CrossSupport(img, *offset)); err != nil {
		fmt.Fprintf(stderr, "cbca cross: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func writeCross(path string, cs *aggregation.CrossSupport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	planes := map[string][]float32{
		"left":   cs.Channel(aggregation.ArmLeft),
		"right":  cs.Channel(aggregation.ArmRight),
		"top":    cs.Channel(aggregation.ArmTop),
		"bottom": cs.Channel(aggregation.ArmBottom),
	}
	if err := exrio.Encode(f, cs.Cols, cs.Rows, planes, exrio.CompressionZIP); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runInfo(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	layers := fs.Bool("layers", false, "print one summary line per disparity layer")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "cbca info: expected one cost volume file")
		return exitUsage
	}

	v, err := costvolume.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "cbca info: %v\n", err)
		return exitFailure
	}

	a := v.Attrs
	fmt.Fprintf(stdout, "file:         %s\n", fs.Arg(0))
	fmt.Fprintf(stdout, "size:         %d rows x %d cols x %d disparities\n", v.Rows, v.Cols, v.NumDisparities())
	fmt.Fprintf(stdout, "disparities:  [%g, %g]\n", v.Disparities[0], v.Disparities[len(v.Disparities)-1])
	fmt.Fprintf(stdout, "subpixel:     %d\n", a.SubpixelFactor)
	fmt.Fprintf(stdout, "offset:       %d\n", a.BorderOffset)
	fmt.Fprintf(stdout, "measure:      %s (%s)\n", orNone(a.Measure), orNone(a.MeasureType))
	fmt.Fprintf(stdout, "aggregation:  %s\n", orNone(a.Aggregation))
	fmt.Fprintf(stdout, "max cost:     %g\n", a.MaxPossibleCost)
	printSummary(stdout, "costs:        ", costvolume.Summarize(v))

	if *layers {
		for d, disp := range v.Disparities {
			printSummary(stdout, fmt.Sprintf("  d=%-8g    ", disp), costvolume.SummarizeLayer(v, d))
		}
	}
	return exitOK
}

func printSummary(w io.Writer, prefix string, s costvolume.Summary) {
	if s.Finite == 0 {
		fmt.Fprintf(w, "%s%d cells, none finite\n", prefix, s.Cells)
		return
	}
	fmt.Fprintf(w, "%s%d finite, %d invalid, min %g, max %g, mean %.6g, stddev %.6g\n",
		prefix, s.Finite, s.Invalid, s.Min, s.Max, s.Mean, s.StdDev)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
