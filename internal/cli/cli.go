// Package cli is the qrart command line: the web server plus offline
// encode, decode and parameter expansion helpers.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrart/internal/artbatch"
	"github.com/cristianadrielbraun/qrart/internal/config"
	"github.com/cristianadrielbraun/qrart/internal/controlnet"
	"github.com/cristianadrielbraun/qrart/internal/handlers"
	"github.com/cristianadrielbraun/qrart/internal/logging"
	"github.com/cristianadrielbraun/qrart/internal/params"
	"github.com/cristianadrielbraun/qrart/internal/qr"
	"github.com/cristianadrielbraun/qrart/internal/server"
	"github.com/cristianadrielbraun/qrart/internal/store"
)

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "qrart",
		Short:        "Generate, decode and AI-stylize QR codes",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(newServeCmd(), newEncodeCmd(), newDecodeCmd(), newExpandCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	gin.SetMode(gin.ReleaseMode)

	ctx := cmd.Context()
	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		return fmt.Errorf("creating images dir: %w", err)
	}
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	client := controlnet.NewClient(controlnet.Options{
		BaseURL: cfg.SD.URL,
		Timeout: cfg.SD.Timeout,
		Retries: cfg.SD.Retries,
		Logger:  logger,
	})
	runner := artbatch.New(artbatch.Options{
		Generator: client,
		Recorder:  st,
		ImagesDir: cfg.ImagesDir,
		Models: controlnet.Models{
			Name:       cfg.SD.ModelName,
			Hash:       cfg.SD.ModelHash,
			ControlNet: cfg.SD.ControlNetModel,
		},
		MaxConcurrent: cfg.SD.MaxConcurrent,
		Logger:        logger,
	})
	h := handlers.New(handlers.Options{
		Store:     st,
		Batcher:   runner,
		ImagesDir: cfg.ImagesDir,
		Logger:    logger,
	})

	logging.Component(logger, "cli").WithFields(logrus.Fields{
		"images": cfg.ImagesDir,
		"db":     cfg.DBPath,
		"sd_url": cfg.SD.URL,
	}).Info("starting qrart")
	srv := server.New(cfg.Addr(), server.NewRouter(h, logger, "web/static"), logger)
	return srv.Run(ctx)
}

func newEncodeCmd() *cobra.Command {
	var (
		out   string
		color string
	)
	cmd := &cobra.Command{
		Use:   "encode TEXT",
		Short: "Encode text as a QR code, printed to the terminal or written to a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := strings.Join(args, " ")
			if out == "" {
				s, err := qr.Terminal(payload)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), s)
				return err
			}
			opts := qr.DefaultOptions()
			opts.Format = qr.ParseFormat(strings.TrimPrefix(filepath.Ext(out), "."))
			opts.Fg = qr.ParseColor(color, opts.Fg)
			data, err := qr.Encode(payload, opts)
			if err != nil {
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the image to this file (.png, .jpg or .svg)")
	cmd.Flags().StringVar(&color, "color", "#000000", "module color")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode FILE",
		Short: "Print the contents of the QR codes in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			results, err := qr.Decode(f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintln(w, r.Text)
				if r.OTP != nil {
					fmt.Fprintf(w, "  type=%s issuer=%s account=%s\n", r.OTP.Type, r.OTP.Issuer, r.OTP.AccountName)
				}
			}
			return nil
		},
	}
}

func newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand NAME=VALUES...",
		Short: "Print every combination of comma separated parameter values",
		Example: `  qrart expand steps=20,30 weight=1.1,1.5 seed=
  (an empty value keeps the backend default)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := parseAssignments(args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, c := range params.Expand(set) {
				fmt.Fprintln(w, formatCombination(c))
			}
			return nil
		},
	}
}

func parseAssignments(args []string) (*params.Set, error) {
	set := params.NewSet()
	for _, a := range args {
		name, raw, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%q: expected NAME=VALUES", a)
		}
		if strings.TrimSpace(raw) == "" {
			set.Put(name, params.Absent())
			continue
		}
		set.Put(name, params.List(raw))
	}
	return set, nil
}

func formatCombination(c params.Combination) string {
	parts := make([]string, 0, len(c.Keys()))
	for _, k := range c.Keys() {
		v, _ := c.Get(k)
		parts = append(parts, k+"="+v.String())
	}
	return strings.Join(parts, " ")
}
