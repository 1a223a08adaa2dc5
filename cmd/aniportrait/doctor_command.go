package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"aniportrait/internal/config"
	"aniportrait/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var audio bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, directories, and model weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			failures := 0
			printSection(out, "Tools", colorize)
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				kind, detail := dependencyKind(status)
				if kind == statusError {
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
			}

			printSection(out, "Directories and weights", colorize)
			weights, err := ctx.ensureWeights()
			if err != nil {
				failures++
				fmt.Fprintln(out, renderStatusLine("Model manifest", statusError, err.Error(), colorize))
			}
			var results []preflight.Result
			if weights != nil {
				results = preflight.RunAll(cfg, weights, audio)
			} else {
				results = preflight.RunAll(cfg, nil, audio)
			}
			for _, r := range results {
				kind := resultKind(r)
				if kind == statusError {
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			printSection(out, "Configuration", colorize)
			printConfigSummary(out, cfg, colorize)
			if weights != nil {
				fmt.Fprintln(out, renderStatusLine("Known weights", statusInfo, strings.Join(weights.Names(), ", "), colorize))
			}

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&audio, "audio", true, "Include audio-driven model weights")
	return cmd
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printConfigSummary(out io.Writer, cfg *config.Config, colorize bool) {
	gen := cfg.Generation
	fmt.Fprintln(out, renderStatusLine("Resolution", statusInfo, fmt.Sprintf("%dx%d", gen.Width, gen.Height), colorize))
	fmt.Fprintln(out, renderStatusLine("Guidance / steps", statusInfo, fmt.Sprintf("cfg %.1f, %d steps, %s", gen.CFG, gen.Steps, gen.WeightDType), colorize))
	fmt.Fprintln(out, renderStatusLine("Pose templates", statusInfo,
		fmt.Sprintf("%.0f fps, window %d, %s", cfg.Pose.TargetFPS, cfg.Pose.SmoothWindow, cfg.Pose.EulerConvention), colorize))
	fmt.Fprintln(out, renderStatusLine("Models root", statusInfo, cfg.Models.Root, colorize))
}
