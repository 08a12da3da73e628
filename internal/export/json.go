package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/pomodoro/internal/model"
)

type jsonExport struct {
	ExportedAt   string        `json:"exported_at"`
	Count        int           `json:"count"`
	TotalMinutes int           `json:"total_minutes"`
	Sessions     []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID              int64  `json:"id"`
	CompletedAt     string `json:"completed_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Duration        string `json:"duration"`
	Tag             string `json:"tag,omitempty"`
	Note            string `json:"note,omitempty"`
}

func ToJSON(sessions []model.Session, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(sessions),
		Sessions:   []jsonSession{},
	}

	for _, s := range sessions {
		export.TotalMinutes += s.DurationMinutes
		export.Sessions = append(export.Sessions, jsonSession{
			ID:              s.ID,
			CompletedAt:     s.CreatedAt.Local().Format(time.RFC3339),
			DurationMinutes: s.DurationMinutes,
			Duration:        formatMinutes(s.DurationMinutes),
			Tag:             s.Tag,
			Note:            s.Note,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
