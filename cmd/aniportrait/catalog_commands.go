package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aniportrait/internal/catalog"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List pose templates written by `pose extract`",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			templates, err := store.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, templateViews(templates))
			}
			out := cmd.OutOrStdout()
			if len(templates) == 0 {
				fmt.Fprintln(out, "No pose templates recorded")
				return nil
			}
			rows := make([][]string, 0, len(templates))
			for _, tpl := range templates {
				rows = append(rows, []string{
					filepath.Base(tpl.Path),
					strconv.Itoa(tpl.Frames),
					strconv.FormatFloat(tpl.FPS, 'f', -1, 64),
					filepath.Base(tpl.SourceVideo),
					formatTimestamp(tpl.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Template", "Frames", "FPS", "Source", "Created"}, rows, 1, 2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var limit int
	var statuses []string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit, filter...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runViews(runs))
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				result := filepath.Base(run.OutputPath)
				if run.Status != catalog.StatusCompleted {
					result = run.ErrorKind
				}
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					run.Mode,
					string(run.Status),
					filepath.Base(run.ReferencePath),
					filepath.Base(run.DriverPath),
					result,
					formatTimestamp(run.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Mode", "Status", "Reference", "Driver", "Result", "Started"}, rows, 0))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (running, completed, failed, rejected)")
	return cmd
}

func parseStatuses(values []string) ([]catalog.Status, error) {
	out := make([]catalog.Status, 0, len(values))
	for _, v := range values {
		status := catalog.Status(strings.ToLower(strings.TrimSpace(v)))
		switch status {
		case catalog.StatusRunning, catalog.StatusCompleted, catalog.StatusFailed, catalog.StatusRejected:
			out = append(out, status)
		case "":
		default:
			return nil, fmt.Errorf("unknown status %q", v)
		}
	}
	return out, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

type templateView struct {
	Path        string    `json:"path"`
	SourceVideo string    `json:"source_video"`
	Frames      int       `json:"frames"`
	FPS         float64   `json:"fps"`
	CreatedAt   time.Time `json:"created_at"`
}

func templateViews(templates []*catalog.Template) []templateView {
	views := make([]templateView, 0, len(templates))
	for _, tpl := range templates {
		views = append(views, templateView{
			Path:        tpl.Path,
			SourceVideo: tpl.SourceVideo,
			Frames:      tpl.Frames,
			FPS:         tpl.FPS,
			CreatedAt:   tpl.CreatedAt,
		})
	}
	return views
}

type runView struct {
	ID            int64     `json:"id"`
	RequestID     string    `json:"request_id"`
	Mode          string    `json:"mode"`
	Status        string    `json:"status"`
	ReferencePath string    `json:"reference_path"`
	DriverPath    string    `json:"driver_path"`
	OutputPath    string    `json:"output_path,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func runViews(runs []*catalog.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			ID:            run.ID,
			RequestID:     run.RequestID,
			Mode:          run.Mode,
			Status:        string(run.Status),
			ReferencePath: run.ReferencePath,
			DriverPath:    run.DriverPath,
			OutputPath:    run.OutputPath,
			ErrorKind:     run.ErrorKind,
			ErrorMessage:  run.ErrorMessage,
			CreatedAt:     run.CreatedAt,
			UpdatedAt:     run.UpdatedAt,
		})
	}
	return views
}
