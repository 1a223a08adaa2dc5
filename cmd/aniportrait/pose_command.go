package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aniportrait/internal/config"
	"aniportrait/internal/pipeline"
)

func newPoseCommand(ctx *commandContext) *cobra.Command {
	poseCmd := &cobra.Command{
		Use:   "pose",
		Short: "Pose template utilities",
	}
	poseCmd.AddCommand(newPoseExtractCommand(ctx))
	return poseCmd
}

func newPoseExtractCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Build a head-pose template from a driving video",
		Long: `Extract reads every frame of the video, tracks the head pose relative to
the first frame, resamples it to pose.target_fps, smooths it, and writes a
<timestamp>_pose.npy template to the output directory. Use the template with
` + "`generate audio --template`" + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			s, err := ctx.newSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.service.ExtractPose(cmd.Context(), pipeline.ExtractRequest{Video: video})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Template: %s\n", res.TemplatePath)
			fmt.Fprintf(out, "Source:   %d frames at %.2f fps\n", res.SourceFrames, res.SourceFPS)
			fmt.Fprintf(out, "Poses:    %d at %.2f fps\n", res.Frames, res.FPS)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
