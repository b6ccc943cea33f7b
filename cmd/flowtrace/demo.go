package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luxas/flowtrace"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
)

var errDiskFull = errors.New("disk full")

func newDemoCmd(opts *rootOptions) *cobra.Command {
	var (
		fail  bool
		spans bool
	)

	cmd := &cobra.Command{
		Use:   "demo [IMAGE...]",
		Short: "Run a traced sample image pipeline",
		Long:  "Runs a small image processing pipeline with every step traced, and prints the trace file written. Use --fail to make saving the last image fail.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"cat.png", "dog.png"}
			}
			return runDemo(cmd, opts, args, fail, spans)
		},
	}

	cmd.Flags().BoolVar(&fail, "fail", false, "make saving the last image fail")
	cmd.Flags().BoolVar(&spans, "spans", false, "also print the frames as OpenTelemetry spans")
	return cmd
}

// demoPersister remembers where the trace went.
type demoPersister struct {
	*flowtrace.FilePersister
	written []string
}

func (p *demoPersister) Persist(ctx context.Context, doc *flowtrace.Document, rootName string, outcome flowtrace.Outcome) error {
	u, err := p.Write(ctx, doc, rootName, outcome)
	if err != nil {
		return err
	}
	p.written = append(p.written, u)
	return nil
}

func runDemo(cmd *cobra.Command, opts *rootOptions, images []string, fail, spans bool) error {
	out := cmd.OutOrStdout()
	p := &demoPersister{FilePersister: opts.persister()}

	ctxb := flowtrace.Context().
		From(cmd.Context()).
		WithLogger(opts.log).
		WithPersister(p).
		WithTruncateBudget(opts.cfg.TruncateBudget)
	if spans {
		tp, err := flowtrace.Provider().
			Synchronous().
			WithStdoutExporter(stdouttrace.WithWriter(out)).
			Build()
		if err != nil {
			return err
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
		ctxb = ctxb.WithTracerProvider(tp)
	}
	ctx := ctxb.Build()

	processed, err := newPipeline(fail)(ctx, images)
	if !flowtrace.IsEnabled() {
		fmt.Fprintln(out, "Tracing is disabled; no trace written")
	}
	for _, u := range p.written {
		fmt.Fprintf(out, "Trace written to %s\n", u)
	}
	if err != nil {
		return fmt.Errorf("pipeline failed after %d images: %w", processed, err)
	}
	fmt.Fprintf(out, "Processed %d images\n", processed)
	return nil
}

type image struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// newPipeline wires the traced steps together. Every step is a wrapped
// function, so the frames nest the same way the calls do.
func newPipeline(fail bool) func(context.Context, []string) (int, error) {
	tracer := flowtrace.Tracer()

	load := flowtrace.Wrap(tracer, "load_image", func(ctx context.Context, name string) (image, error) {
		flowtrace.LoggerFromContext(ctx).Info("decoding", "name", name)
		return image{Name: name, Width: 64 * (len(name) + 1), Height: 48 * (len(name) + 1)}, nil
	})
	resize := flowtrace.Wrap2(tracer, "resize_image", func(_ context.Context, img image, width int) (image, error) {
		img.Height = img.Height * width / img.Width
		img.Width = width
		return img, nil
	})
	save := flowtrace.Wrap2(tracer, "save_image", func(ctx context.Context, img image, last bool) (string, error) {
		if fail && last {
			flowtrace.LoggerFromContext(ctx).Error(errDiskFull, "couldn't save", "name", img.Name)
			return "", errDiskFull
		}
		return "thumbs/" + strings.TrimSuffix(img.Name, ".png") + ".jpg", nil
	})

	return flowtrace.Wrap(tracer, "process_images", func(ctx context.Context, names []string) (int, error) {
		flowtrace.LoggerFromContext(ctx).Info("processing batch", "images", len(names), "run_id", xid.New().String())
		for i, name := range names {
			img, err := load(ctx, name)
			if err != nil {
				return i, err
			}
			if img, err = resize(ctx, img, 128); err != nil {
				return i, err
			}
			if _, err := save(ctx, img, i == len(names)-1); err != nil {
				return i, err
			}
		}
		return len(names), nil
	})
}
