package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"aniportrait/internal/config"
	"aniportrait/internal/deps"
	"aniportrait/internal/models"
	"aniportrait/internal/pipeline"
	"aniportrait/internal/preflight"
)

// generationFlags binds per-request overrides of the generation section.
type generationFlags struct {
	height    int
	width     int
	frames    int
	seed      int64
	cfg       float64
	steps     int
	fps       int
	precision string

	skipPreflight bool
	jsonOut       bool
}

func (g *generationFlags) register(flags *pflag.FlagSet, fpsUsage string) {
	flags.IntVar(&g.height, "height", 0, "Output height (0-1024, 0 uses the reference height)")
	flags.IntVar(&g.width, "width", 0, "Output width (0-1024, 0 uses the reference width)")
	flags.IntVarP(&g.frames, "frames", "L", 0, "Frame count (0 uses the full driving length)")
	flags.Int64Var(&g.seed, "seed", 0, "Random seed")
	flags.Float64Var(&g.cfg, "cfg", 0, "Classifier-free guidance scale (0.0-10.0)")
	flags.IntVar(&g.steps, "steps", 0, "Diffusion steps (0-50)")
	flags.IntVar(&g.fps, "fps", 0, fpsUsage)
	flags.StringVar(&g.precision, "precision", "", "Weight precision (fp16 or fp32)")
	flags.BoolVar(&g.skipPreflight, "skip-preflight", false, "Skip directory and weight checks")
	flags.BoolVar(&g.jsonOut, "json", false, "Output as JSON")
}

// options overlays the flags the user actually set on the configured defaults.
func (g *generationFlags) options(flags *pflag.FlagSet, base config.Generation, audio bool) config.Generation {
	opts := base
	if flags.Changed("height") {
		opts.Height = g.height
	}
	if flags.Changed("width") {
		opts.Width = g.width
	}
	if flags.Changed("frames") {
		opts.Frames = g.frames
	}
	if flags.Changed("seed") {
		opts.Seed = g.seed
	}
	if flags.Changed("cfg") {
		opts.CFG = g.cfg
	}
	if flags.Changed("steps") {
		opts.Steps = g.steps
	}
	if flags.Changed("fps") {
		if audio {
			opts.AudioFPS = g.fps
		} else {
			opts.PoseFPS = g.fps
		}
	}
	if flags.Changed("precision") {
		opts.WeightDType = strings.ToLower(strings.TrimSpace(g.precision))
	}
	return opts
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a portrait video",
	}
	generateCmd.AddCommand(newGeneratePoseCommand(ctx))
	generateCmd.AddCommand(newGenerateAudioCommand(ctx))
	return generateCmd
}

func newGeneratePoseCommand(ctx *commandContext) *cobra.Command {
	var reference, video string
	var flags generationFlags

	cmd := &cobra.Command{
		Use:   "pose",
		Short: "Animate a reference image with a driving video",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := pipeline.PoseRequest{Options: flags.options(cmd.Flags(), cfg.Generation, false)}
			if req.Reference, err = expandArg("--ref", reference); err != nil {
				return err
			}
			if req.PoseVideo, err = expandArg("--video", video); err != nil {
				return err
			}

			if !flags.skipPreflight {
				weights, err := ctx.ensureWeights()
				if err != nil {
					return err
				}
				if err := runPreflight(cmd.Context(), cmd.ErrOrStderr(), cfg, weights, false); err != nil {
					return err
				}
			}
			s, err := ctx.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := s.service.GeneratePose(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printOutput(cmd, out, flags.jsonOut)
		},
	}
	cmd.Flags().StringVar(&reference, "ref", "", "Reference image (jpg, jpeg, png, gif)")
	cmd.Flags().StringVar(&video, "video", "", "Driving pose video (mp4, mov, avi, mkv, webm)")
	flags.register(cmd.Flags(), "Output fps (0 inherits the driving video rate)")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("video")
	return cmd
}

func newGenerateAudioCommand(ctx *commandContext) *cobra.Command {
	var reference, audio, template string
	var flags generationFlags

	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Animate a reference image from speech",
		Long: `Audio drives the face mesh from speech and takes head motion from a pose
template (see ` + "`pose extract`" + `), cycled back and forth to cover the audio.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := pipeline.AudioRequest{Options: flags.options(cmd.Flags(), cfg.Generation, true)}
			if req.Reference, err = expandArg("--ref", reference); err != nil {
				return err
			}
			if req.Audio, err = expandArg("--audio", audio); err != nil {
				return err
			}
			if req.Template, err = expandArg("--template", template); err != nil {
				return err
			}

			if !flags.skipPreflight {
				weights, err := ctx.ensureWeights()
				if err != nil {
					return err
				}
				if err := runPreflight(cmd.Context(), cmd.ErrOrStderr(), cfg, weights, true); err != nil {
					return err
				}
			}
			s, err := ctx.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := s.service.GenerateAudio(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printOutput(cmd, out, flags.jsonOut)
		},
	}
	cmd.Flags().StringVar(&reference, "ref", "", "Reference image (jpg, jpeg, png, gif)")
	cmd.Flags().StringVar(&audio, "audio", "", "Driving audio (wav, mp3)")
	cmd.Flags().StringVar(&template, "template", "", "Pose template (.npy) from `pose extract`")
	flags.register(cmd.Flags(), "Output fps (default generation.audio_frame_per_second)")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func expandArg(flag, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", flag)
	}
	return config.ExpandPath(value)
}

func runPreflight(ctx context.Context, w io.Writer, cfg *config.Config, weights *models.Registry, audio bool) error {
	missing := deps.Missing(preflight.CheckSystemDeps(ctx, cfg))
	failed := preflight.Failed(preflight.RunAll(cfg, weights, audio))
	if len(missing) == 0 && len(failed) == 0 {
		return nil
	}
	colorize := shouldColorize(w)
	for _, status := range missing {
		_, detail := dependencyKind(status)
		fmt.Fprintln(w, renderStatusLine(status.Name, statusError, detail, colorize))
	}
	for _, r := range failed {
		fmt.Fprintln(w, renderStatusLine(r.Name, statusError, r.Detail, colorize))
	}
	return errors.New("preflight checks failed (run `aniportrait doctor` for details or pass --skip-preflight)")
}

func printOutput(cmd *cobra.Command, out pipeline.Output, jsonOut bool) error {
	if jsonOut {
		return writeJSON(cmd, out)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Video:   %s\n", out.Path)
	fmt.Fprintf(w, "Frames:  %d at %.2f fps (%dx%d)\n", out.Frames, out.FPS, out.Width, out.Height)
	fmt.Fprintf(w, "Request: %s\n", out.RequestID)
	return nil
}

// writeJSON encodes v as indented JSON on stdout. Paths are written verbatim.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
