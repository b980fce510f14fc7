package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/toyz/kwargs/pkg/kwargs/adapters"
	"github.com/toyz/kwargs/pkg/kwargs/app"
)

func main() {
	var (
		formatFlag  = flag.String("format", "table", "Output format: table, json or yaml")
		serveFlag   = flag.String("serve", "", "Serve the demo application on this address instead of printing")
		adapterFlag = flag.String("adapter", "echo", "Router used with -serve: echo, gin, fiber or mux")
		noColorFlag = flag.Bool("no-color", false, "Disable colored output")
		typesFlag   = flag.Bool("types", false, "List the type names accepted in route templates")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Documents the routes of the demo book library and their parameters.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Route table\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --format json            # OpenAPI document\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --serve :8080 --adapter gin\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --types                  # Route template types\n", os.Args[0])
	}
	flag.Parse()

	if *noColorFlag {
		color.NoColor = true
	}
	if *typesFlag {
		printTypes(os.Stdout)
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fatal(err)
	}
	a, err := newDemoApp(cfg)
	if err != nil {
		fatal(err)
	}

	if *serveFlag != "" {
		if err := serve(a, *adapterFlag, *serveFlag); err != nil {
			fatal(err)
		}
		return
	}
	if err := render(os.Stdout, a, *formatFlag); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// render writes the routes of a in the requested format
func render(w io.Writer, a *app.App, format string) error {
	switch format {
	case "table":
		printRoutes(w, a)
		return nil
	case "json":
		out, err := json.MarshalIndent(a.OpenAPI(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		raw, err := json.Marshal(a.OpenAPI())
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to convert document: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// serve runs a on the chosen router until SIGINT or SIGTERM
func serve(a *app.App, adapter, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var handler http.Handler
	switch adapter {
	case "echo":
		ad := adapters.NewDefaultEchoAdapter(a)
		ad.Mount()
		handler = ad.Echo()
	case "gin":
		ad := adapters.NewDefaultGinAdapter(a)
		ad.Mount()
		handler = ad.Engine()
	case "mux":
		ad := adapters.NewMuxAdapter(a, nil)
		ad.Mount()
		handler = ad.Router()
	case "fiber":
		ad := adapters.NewDefaultFiberAdapter(a)
		ad.Mount()
		go func() {
			<-ctx.Done()
			_ = ad.App().ShutdownWithTimeout(30 * time.Second)
		}()
		a.Logger().Info("listening", "addr", addr, "adapter", adapter)
		return ad.App().Listen(addr)
	default:
		return fmt.Errorf("unknown adapter %q", adapter)
	}

	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		a.Logger().Info("listening", "addr", addr, "adapter", adapter)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Logger().Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
