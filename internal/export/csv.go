package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/pomodoro/internal/model"
)

var csvHeader = []string{"ID", "Completed", "Minutes", "Duration", "Tag", "Note"}

func ToCSV(sessions []model.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			strconv.FormatInt(s.ID, 10),
			s.CreatedAt.Local().Format(time.RFC3339),
			strconv.Itoa(s.DurationMinutes),
			formatMinutes(s.DurationMinutes),
			s.Tag,
			s.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatMinutes renders a length as HH:MM.
func formatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
