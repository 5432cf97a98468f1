// Copyright (c) 2026 WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	rscqr "rsc.io/qr"

	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/config"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/logo"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/pipeline"
	"github.com/wso2-open-operations/common-tools/operations/qr-code-tool/internal/qr"
)

type renderOpts struct {
	size     int
	level    string
	theme    string
	fg       string
	bg       string
	logo     string
	out      string // "-" writes to stdout
	terminal bool
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "qrtool",
		Short:        "Render QR codes to PNG",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log := zap.NewNop()
			if verbose {
				if dev, err := zap.NewDevelopment(); err == nil {
					log = dev
				}
			}
			cmd.SetContext(withLogger(cmd.Context(), log))
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("qrtool %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildTime))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging on stderr")

	root.AddCommand(newRenderCmd())
	return root
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{
		size:  pipeline.DefaultSize,
		level: string(qr.LevelM),
		theme: string(qr.ThemeLight),
		out:   pipeline.ExportFilename,
	}

	cmd := &cobra.Command{
		Use:   "render [text]",
		Short: "Render text to a QR code PNG",
		Long:  "Render text to a QR code PNG. Text is read from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\r\n")
			}
			return runRender(cmd, text, opts)
		},
	}

	cmd.Flags().IntVar(&opts.size, "size", opts.size, fmt.Sprintf("edge length in pixels, one of %v", pipeline.SizePresets))
	cmd.Flags().StringVar(&opts.level, "ec", opts.level, "error correction level: L, M, Q or H")
	cmd.Flags().StringVar(&opts.theme, "theme", opts.theme, "palette: light or dark")
	cmd.Flags().StringVar(&opts.fg, "fg", "", "foreground color override (#rrggbb)")
	cmd.Flags().StringVar(&opts.bg, "bg", "", "background color override (#rrggbb)")
	cmd.Flags().StringVar(&opts.logo, "logo", "", "image to place in the center of the code")
	cmd.Flags().StringVarP(&opts.out, "out", "o", opts.out, `output file, "-" for stdout`)
	cmd.Flags().BoolVar(&opts.terminal, "terminal", false, "also print the code to the terminal")
	return cmd
}

func runRender(cmd *cobra.Command, text string, opts renderOpts) error {
	log := loggerFromContext(cmd.Context())
	config.LoadDotEnv(log)
	cfg := config.LoadConfig()

	req, err := opts.request(cfg.LogoScale)
	if err != nil {
		return err
	}
	req.Text = text

	if opts.logo != "" {
		f, err := os.Open(opts.logo)
		if err != nil {
			return fmt.Errorf("open logo: %w", err)
		}
		defer f.Close()

		logos := logo.NewManager(logo.NewMemoryStore(), cfg.LogoSoftLimit, log)
		defer logos.Dispose()

		asset, err := logos.SetLogo(logo.File{Name: opts.logo, Body: f})
		if err != nil {
			return err
		}
		if asset.Oversize {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is larger than %d bytes\n", opts.logo, cfg.LogoSoftLimit)
		}
		req.Logo = asset
	}

	// Render inline: the CLI has nothing to debounce.
	p, err := pipeline.New(qr.NewEncoder(log, cfg.MinSize, cfg.MaxSize), pipeline.SchedulerFunc(func(task func()) { task() }), log, req)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Settle(cmd.Context()); err != nil {
		return err
	}
	if snap := p.Snapshot(); snap.LastError != nil {
		return snap.LastError
	}

	png, err := p.ExportPNG()
	if err != nil {
		return err
	}

	if opts.out == "-" {
		if _, err := cmd.OutOrStdout().Write(png); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
	} else {
		if err := os.WriteFile(opts.out, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.out, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", opts.out, len(png))
	}

	if opts.terminal {
		// Keep the preview off stdout when the PNG goes there.
		w := cmd.OutOrStdout()
		if opts.out == "-" {
			w = cmd.ErrOrStderr()
		}
		qrterminal.GenerateHalfBlock(req.Payload(), terminalLevel(req.Level), w)
	}
	return nil
}

// request validates the flags and builds the render request.
func (o renderOpts) request(logoScale float64) (pipeline.Request, error) {
	if !pipeline.ValidSize(o.size) {
		return pipeline.Request{}, fmt.Errorf("%w: %d (want one of %v)", pipeline.ErrInvalidSize, o.size, pipeline.SizePresets)
	}
	level, err := qr.ParseLevel(o.level)
	if err != nil {
		return pipeline.Request{}, err
	}
	theme, err := qr.ParseTheme(o.theme)
	if err != nil {
		return pipeline.Request{}, err
	}
	req := pipeline.Request{SizePx: o.size, Level: level, Theme: theme, LogoScale: logoScale}
	if o.fg != "" {
		if req.Foreground, err = qr.ParseColor(o.fg); err != nil {
			return pipeline.Request{}, err
		}
	}
	if o.bg != "" {
		if req.Background, err = qr.ParseColor(o.bg); err != nil {
			return pipeline.Request{}, err
		}
	}
	return req, nil
}

func terminalLevel(l qr.Level) rscqr.Level {
	switch l {
	case qr.LevelL:
		return rscqr.L
	case qr.LevelQ:
		return rscqr.Q
	case qr.LevelH:
		return rscqr.H
	default:
		return rscqr.M
	}
}
