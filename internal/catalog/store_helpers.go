package catalog

import (
	"database/sql"
	"time"
)

const runColumns = `id, request_id, mode, reference_path, driver_path, output_path, status,
    error_kind, error_message, width, height, frames, fps, seed, cfg, steps, created_at, updated_at`

const templateColumns = `id, path, source_video, frames, fps, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		run                            Run
		output, kind, message          sql.NullString
		status, createdRaw, updatedRaw string
	)
	if err := scanner.Scan(
		&run.ID,
		&run.RequestID,
		&run.Mode,
		&run.ReferencePath,
		&run.DriverPath,
		&output,
		&status,
		&kind,
		&message,
		&run.Width,
		&run.Height,
		&run.Frames,
		&run.FPS,
		&run.Seed,
		&run.CFG,
		&run.Steps,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	run.OutputPath = output.String
	run.Status = Status(status)
	run.ErrorKind = kind.String
	run.ErrorMessage = message.String
	run.CreatedAt = parseTime(createdRaw)
	run.UpdatedAt = parseTime(updatedRaw)
	return &run, nil
}

func scanTemplate(scanner rowScanner) (*Template, error) {
	var (
		tpl        Template
		createdRaw string
	)
	if err := scanner.Scan(&tpl.ID, &tpl.Path, &tpl.SourceVideo, &tpl.Frames, &tpl.FPS, &createdRaw); err != nil {
		return nil, err
	}
	tpl.CreatedAt = parseTime(createdRaw)
	return &tpl, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
