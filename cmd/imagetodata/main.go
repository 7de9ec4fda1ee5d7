package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/dominantcolor"
	"github.com/rs/zerolog"

	"imagetodata/internal/logging"
	"imagetodata/internal/models"
	"imagetodata/pkg/config"
	"imagetodata/pkg/export"
	"imagetodata/pkg/pixeldata"
	"imagetodata/pkg/visualization"
)

// rangeFlag parses "min,max" into a two element list.
type rangeFlag struct {
	values []float64
}

func (r *rangeFlag) String() string {
	if r == nil || len(r.values) == 0 {
		return ""
	}
	return fmt.Sprintf("%g,%g", r.values[0], r.values[1])
}

func (r *rangeFlag) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return fmt.Errorf("expected min,max but got %q", s)
	}
	values := make([]float64, 2)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("invalid range bound %q: %w", p, err)
		}
		values[i] = v
	}
	r.values = values
	return nil
}

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "YAML configuration file (optional)")
	writeConfig := flag.String("write-config", "", "Write a default configuration file to this path and exit")
	inputFile := flag.String("input", "", "Image file to convert (PNG, JPEG, GIF, BMP, TIFF, WebP)")
	outputFile := flag.String("output", "", "CSV file for the (x, y, class_id) rows, - for stdout")
	header := flag.Bool("header", true, "Write a CSV header line")
	summaryFile := flag.String("summary", "", "Write a YAML run summary to this file")
	plotFile := flag.String("plot", "", "Write a scatter plot (.svg, .png, .jpg)")
	flip := flag.Bool("flip", true, "Measure y upward from the bottom edge")
	whiteBackground := flag.Bool("white-background", false, "Treat pure white as background instead of the most frequent color")
	quantizeColors := flag.Int("quantize", 0, "Reduce the image to this many colors before classifying (0 = off)")
	quantizeMethod := flag.String("quantize-method", "kmeans", "Color reduction method: kmeans or dominant")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	var xRange, yRange rangeFlag
	flag.Var(&xRange, "xrange", "Remap x onto min,max")
	flag.Var(&yRange, "yrange", "Remap y onto min,max")
	flag.Parse()

	logger := logging.NewConsole(*verbose)

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			logger.Fatal().Err(err).Msg("failed to write config")
		}
		logger.Info().Str("path", *writeConfig).Msg("default configuration written")
		return
	}

	if *inputFile == "" {
		if flag.NArg() != 1 {
			flag.Usage()
			os.Exit(1)
		}
		*inputFile = flag.Arg(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Flags given on the command line override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output.Table = *outputFile
		case "header":
			cfg.Output.Header = *header
		case "summary":
			cfg.Output.Summary = *summaryFile
		case "plot":
			cfg.Output.Plot = *plotFile
		case "flip":
			cfg.Classify.FlipVertical = *flip
		case "white-background":
			cfg.Classify.WhiteBackground = *whiteBackground
		case "quantize":
			cfg.Quantize.Colors = *quantizeColors
			if cfg.Quantize.Method == "" || cfg.Quantize.Method == "none" {
				cfg.Quantize.Method = *quantizeMethod
			}
		case "quantize-method":
			cfg.Quantize.Method = *quantizeMethod
		case "verbose":
			cfg.Output.Verbose = *verbose
		case "xrange":
			cfg.Classify.XRange = xRange.values
		case "yrange":
			cfg.Classify.YRange = yRange.values
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger = logging.NewConsole(cfg.Output.Verbose)
	if err := run(cfg, *inputFile, logger); err != nil {
		logger.Fatal().Err(err).Str("input", *inputFile).Msg("conversion failed")
	}
}

func run(cfg *config.Config, input string, logger zerolog.Logger) error {
	params, err := paramsFromConfig(cfg)
	if err != nil {
		return err
	}

	classifier := pixeldata.NewClassifier(params, logging.Component(logger, "pixeldata"))

	startTime := time.Now()
	img, format, err := pixeldata.DecodeFile(input)
	if err != nil {
		return err
	}
	logger.Debug().Str("input", input).Str("format", format).Msg("decoded image")

	ds, err := classifier.Classify(img)
	if err != nil {
		return err
	}
	ds.Source = input
	ds.Format = format
	logger.Debug().Dur("elapsed", time.Since(startTime)).Msg("classification finished")

	table := ds.Table()

	if cfg.Output.Table == "-" || cfg.Output.Table == "" {
		if err := export.WriteCSV(os.Stdout, table, cfg.Output.Header); err != nil {
			return fmt.Errorf("failed to write table: %w", err)
		}
	} else {
		if err := export.SaveCSV(cfg.Output.Table, table, cfg.Output.Header); err != nil {
			return fmt.Errorf("failed to write table: %w", err)
		}
		logger.Info().Str("path", cfg.Output.Table).Int("rows", ds.Len()).Msg("table written")
	}

	if cfg.Output.Summary != "" {
		if err := export.SaveSummary(cfg.Output.Summary, export.NewSummary(ds)); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		logger.Info().Str("path", cfg.Output.Summary).Msg("summary written")
	}

	if cfg.Output.Plot != "" {
		opts := visualization.PlotOptions{
			Width:        cfg.Output.PlotWidth,
			Height:       cfg.Output.PlotHeight,
			MarkerRadius: cfg.Output.MarkerRadius,
			XLim:         params.XRange,
			YLim:         params.YRange,
		}
		plotter, err := visualization.NewPlotter(table, opts)
		if err != nil {
			return fmt.Errorf("failed to prepare plot: %w", err)
		}
		if err := plotter.SavePlot(cfg.Output.Plot); err != nil {
			return fmt.Errorf("failed to save plot: %w", err)
		}
		logger.Info().Str("path", cfg.Output.Plot).Int("points", plotter.Len()).Msg("plot written")
	}

	if cfg.Output.Verbose {
		logDominant(img, ds, logger)
	}

	return nil
}

func paramsFromConfig(cfg *config.Config) (pixeldata.Params, error) {
	params := pixeldata.DefaultParams()
	params.FlipVertical = cfg.Classify.FlipVertical
	params.WhiteBackground = cfg.Classify.WhiteBackground

	var err error
	if params.XRange, err = cfg.XRange(); err != nil {
		return params, err
	}
	if params.YRange, err = cfg.YRange(); err != nil {
		return params, err
	}
	if params.Quantize, err = cfg.QuantizeOptions(); err != nil {
		return params, err
	}
	return params, nil
}

// logDominant compares the exact background with the perceptual dominant
// color, which helps spot anti-aliased inputs that need -quantize.
func logDominant(img image.Image, ds *pixeldata.Dataset, logger zerolog.Logger) {
	dominant := dominantcolor.Find(img)
	logger.Debug().
		Str("background", ds.Background.Hex()).
		Str("dominant", dominantcolor.Hex(dominant)).
		Bool("match", models.KeyOf(dominant) == ds.Background).
		Int("colors", len(ds.Classes)).
		Msg("background check")
}
